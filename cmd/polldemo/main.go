// Command polldemo replays a full poll against a running node: a platform
// with three members, an encrypted three option poll, finalization, the
// decryption of the results and a second platform.
package main

import (
	"context"
	"fmt"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/vocdoni/confidential-polls/api"
	"github.com/vocdoni/confidential-polls/api/client"
	"github.com/vocdoni/confidential-polls/crypto/ethereum"
	"github.com/vocdoni/confidential-polls/decrypt"
	"github.com/vocdoni/confidential-polls/gateway"
	"github.com/vocdoni/confidential-polls/input"
	"github.com/vocdoni/confidential-polls/log"
)

type account struct {
	name string
	keys *ethereum.SignKeys
}

type demo struct {
	ctx  context.Context
	cli  *client.HTTPclient
	info *api.Info
}

// send signs tx with the next nonce of acc and submits it.
func (d *demo) send(acc *account, tx *gateway.Tx) *api.TransactionResponse {
	nonce, err := d.cli.Nonce(d.ctx, acc.keys.Address())
	if err != nil {
		log.Fatal(err)
	}
	stx, err := gateway.SignTx(acc.keys, d.info.ChainID, nonce, tx)
	if err != nil {
		log.Fatal(err)
	}
	resp, err := d.cli.SubmitTx(d.ctx, stx)
	if err != nil {
		log.Fatalf("%s %s failed: %v", acc.name, tx.Op, err)
	}
	return resp
}

func (d *demo) listPlatforms() {
	platforms, err := d.cli.Platforms(d.ctx)
	if err != nil {
		log.Fatal(err)
	}
	for _, p := range platforms {
		log.Infow("platform", "id", p.ID, "name", p.Name, "members", fmt.Sprintf("%d/%d", p.MemberCount, p.MemberLimit))
	}
}

func main() {
	host := flag.String("host", "http://localhost:9090", "poll node API URL")
	logLevel := flag.String("logLevel", "info", "log level")
	timeout := flag.Duration("timeout", decrypt.DefaultTimeout, "decryption timeout")
	flag.Parse()
	log.Init(*logLevel, "stdout", nil)

	cli, err := client.New(*host)
	if err != nil {
		log.Fatal(err)
	}
	cli.SetTimeout(*timeout)
	d := &demo{ctx: context.Background(), cli: cli}
	if d.info, err = cli.Info(d.ctx); err != nil {
		log.Fatal(err)
	}
	log.Infow("connected", "chainId", d.info.ChainID, "contract", d.info.Contract.Hex(), "curve", d.info.FHE.Curve)

	accounts := make([]*account, 3)
	for i, name := range []string{"alice", "bob", "charlie"} {
		keys := ethereum.NewSignKeys()
		if err := keys.Generate(); err != nil {
			log.Fatal(err)
		}
		accounts[i] = &account{name: name, keys: keys}
		log.Infow("account", "name", name, "address", keys.AddressString())
	}
	alice, bob, charlie := accounts[0], accounts[1], accounts[2]

	// platform
	platformID := d.send(alice, gateway.CreatePlatformTx("Tech community DAO", 100)).PlatformID
	for _, acc := range accounts {
		d.send(acc, gateway.JoinPlatformTx(platformID))
		log.Infow("joined platform", "member", acc.name, "platform", platformID)
	}
	d.listPlatforms()

	// poll
	options := []string{"Proposal A: increase budget", "Proposal B: keep budget", "Proposal C: reduce budget"}
	pollIndex := d.send(alice, gateway.CreatePollTx(platformID, "Yearly budget", options)).PollIndex
	poll, err := cli.Poll(d.ctx, platformID, pollIndex)
	if err != nil {
		log.Fatal(err)
	}
	log.Infow("poll created", "title", poll.Title, "options", poll.Options, "snapshot", poll.MemberCountSnapshot)

	// encrypted votes
	builder := input.NewBuilder(nil)
	if err := builder.Init(d.info.FHE); err != nil {
		log.Fatal(err)
	}
	for _, v := range []struct {
		acc    *account
		choice uint32
	}{{alice, 0}, {bob, 1}, {charlie, 0}} {
		ballot, err := builder.CreateBallot(d.info.Contract, v.acc.keys.Address())
		if err != nil {
			log.Fatal(err)
		}
		d.send(v.acc, gateway.VoteTx(platformID, pollIndex, v.choice, ballot.Handle, ballot.Proof))
		log.Infow("voted", "member", v.acc.name, "choice", options[v.choice])
	}
	if poll, err = cli.Poll(d.ctx, platformID, pollIndex); err != nil {
		log.Fatal(err)
	}
	voted, err := cli.HasVoted(d.ctx, platformID, pollIndex, alice.keys.Address())
	if err != nil {
		log.Fatal(err)
	}
	log.Infow("poll status", "totalVoted", poll.TotalVoted, "finalized", poll.Finalized, "aliceVoted", voted)

	// finalize and decrypt
	d.send(alice, gateway.FinalizeTx(platformID, pollIndex))
	if poll, err = cli.Poll(d.ctx, platformID, pollIndex); err != nil {
		log.Fatal(err)
	}
	tallies, err := cli.EncryptedCounts(d.ctx, platformID, pollIndex)
	if err != nil {
		log.Fatal(err)
	}
	dec := decrypt.New(cli, alice.keys, d.info.Domain,
		decrypt.WithTimeout(*timeout),
		decrypt.WithDurationDays(d.info.DecryptionDurationDays),
		decrypt.WithRetries(decrypt.DefaultRetries, time.Second))
	results, err := dec.DecryptPoll(d.ctx, d.info.Contract, poll, tallies)
	if err != nil {
		log.Fatal(err)
	}
	for _, r := range results {
		log.Infow("result", "option", r.Option, "votes", r.Count.String())
	}

	// second platform
	d.send(bob, gateway.CreatePlatformTx("Developer community", 50))
	d.listPlatforms()
	log.Infow("demo completed")
}
