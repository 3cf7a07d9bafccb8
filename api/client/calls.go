package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vocdoni/confidential-polls/api"
	"github.com/vocdoni/confidential-polls/decrypt"
	"github.com/vocdoni/confidential-polls/gateway"
	"github.com/vocdoni/confidential-polls/storage/census"
	"github.com/vocdoni/confidential-polls/types"
)

var _ decrypt.Relayer = (*HTTPclient)(nil)

// responseError rebuilds the error of a non 200 response. Known API codes
// are wrapped around their error kind, so callers can use errors.Is with the
// ledger, gateway and decrypt errors.
func responseError(data []byte, status int) error {
	apiErr := struct {
		Err  string `json:"error"`
		Code int    `json:"code"`
	}{}
	if err := json.Unmarshal(data, &apiErr); err != nil || apiErr.Code == 0 {
		return fmt.Errorf("%s: %d (%s)", errCodeNot200, status, strings.TrimSpace(string(data)))
	}
	if kind := api.KindByCode(apiErr.Code); kind != nil {
		return fmt.Errorf("%w: %s (code %d)", kind, apiErr.Err, apiErr.Code)
	}
	return fmt.Errorf("%s: %s (code %d)", errCodeNot200, apiErr.Err, apiErr.Code)
}

// call performs a request and decodes the JSON answer into out, if not nil.
func (c *HTTPclient) call(ctx context.Context, method string, body, out any, urlPath ...string) error {
	data, status, err := c.RequestWithContext(ctx, method, body, nil, urlPath...)
	return decodeResponse(data, status, err, out)
}

// decodeResponse decodes the JSON answer of a request into out, if not nil.
func decodeResponse(data []byte, status int, err error, out any) error {
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return responseError(data, status)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("could not decode response: %w", err)
	}
	return nil
}

func platformPath(id uint64) string {
	return "platforms/" + strconv.FormatUint(id, 10)
}

func pollPath(id uint64, index uint32) string {
	return platformPath(id) + "/polls/" + strconv.FormatUint(uint64(index), 10)
}

// Info returns the public configuration of the node.
func (c *HTTPclient) Info(ctx context.Context) (*api.Info, error) {
	info := &api.Info{}
	return info, c.call(ctx, HTTPGET, nil, info, api.InfoEndpoint)
}

// Nonce returns the next nonce of addr.
func (c *HTTPclient) Nonce(ctx context.Context, addr common.Address) (uint64, error) {
	resp := &api.NonceResponse{}
	if err := c.call(ctx, HTTPGET, nil, resp, "accounts", addr.Hex(), "nonce"); err != nil {
		return 0, err
	}
	return resp.Nonce, nil
}

// SubmitTx submits a signed transaction and waits for its receipt.
func (c *HTTPclient) SubmitTx(ctx context.Context, stx *gateway.SignedTx) (*api.TransactionResponse, error) {
	resp := &api.TransactionResponse{}
	return resp, c.call(ctx, HTTPPOST, stx, resp, api.TransactionsEndpoint)
}

// Platforms lists the platforms in ascending id order.
func (c *HTTPclient) Platforms(ctx context.Context) ([]*types.PlatformSummary, error) {
	resp := &api.Platforms{}
	if err := c.call(ctx, HTTPGET, nil, resp, api.PlatformsEndpoint); err != nil {
		return nil, err
	}
	return resp.Platforms, nil
}

// Platform returns a platform summary.
func (c *HTTPclient) Platform(ctx context.Context, id uint64) (*types.PlatformSummary, error) {
	p := &types.PlatformSummary{}
	return p, c.call(ctx, HTTPGET, nil, p, platformPath(id))
}

// IsMember reports whether addr belongs to the platform.
func (c *HTTPclient) IsMember(ctx context.Context, id uint64, addr common.Address) (bool, error) {
	resp := &api.Membership{}
	if err := c.call(ctx, HTTPGET, nil, resp, platformPath(id), "members", addr.Hex()); err != nil {
		return false, err
	}
	return resp.Member, nil
}

// MembershipProof returns the Merkle proof of addr in the platform.
func (c *HTTPclient) MembershipProof(ctx context.Context, id uint64, addr common.Address) (*census.Proof, error) {
	proof := &census.Proof{}
	return proof, c.call(ctx, HTTPGET, nil, proof, platformPath(id), "members", addr.Hex(), "proof")
}

// Polls lists the polls of a platform.
func (c *HTTPclient) Polls(ctx context.Context, id uint64) ([]*types.PollInfo, error) {
	resp := &api.Polls{}
	if err := c.call(ctx, HTTPGET, nil, resp, platformPath(id), "polls"); err != nil {
		return nil, err
	}
	return resp.Polls, nil
}

// Poll returns a poll.
func (c *HTTPclient) Poll(ctx context.Context, id uint64, index uint32) (*types.PollInfo, error) {
	info := &types.PollInfo{}
	return info, c.call(ctx, HTTPGET, nil, info, pollPath(id, index))
}

// EncryptedCounts returns the tally handles of a poll.
func (c *HTTPclient) EncryptedCounts(ctx context.Context, id uint64, index uint32) ([]types.Handle, error) {
	resp := &api.EncryptedCounts{}
	if err := c.call(ctx, HTTPGET, nil, resp, pollPath(id, index), "counts"); err != nil {
		return nil, err
	}
	return resp.Tallies, nil
}

// HasVoted reports whether addr voted in a poll.
func (c *HTTPclient) HasVoted(ctx context.Context, id uint64, index uint32, addr common.Address) (bool, error) {
	resp := &api.Voted{}
	if err := c.call(ctx, HTTPGET, nil, resp, pollPath(id, index), "voters", addr.Hex()); err != nil {
		return false, err
	}
	return resp.Voted, nil
}

// UserDecrypt sends req to the relayer endpoint and opens the sealed answer
// with kp. The private key of kp is never sent. A grant is used once, so the
// request is sent a single time and is bounded by ctx only.
func (c *HTTPclient) UserDecrypt(ctx context.Context, req *decrypt.UserDecryptRequest, kp *decrypt.Keypair) (map[types.Handle]*big.Int, error) {
	resp := &decrypt.UserDecryptResponse{}
	data, status, err := c.RequestOnce(ctx, HTTPPOST, req, api.DecryptEndpoint)
	if err := decodeResponse(data, status, err, resp); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", decrypt.ErrTimeout, err)
		}
		return nil, err
	}
	return resp.Open(kp)
}
