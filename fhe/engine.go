package fhe

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/vocdoni/confidential-polls/crypto/ecc"
	"github.com/vocdoni/confidential-polls/crypto/ecc/curves"
	"github.com/vocdoni/confidential-polls/crypto/elgamal"
	"github.com/vocdoni/confidential-polls/log"
	"github.com/vocdoni/confidential-polls/storage"
	"github.com/vocdoni/confidential-polls/types"
)

// Engine is the ElGamal implementation of Primitive. It only knows the
// network public key, decryption is up to the key holder (see relayer.KMS).
type Engine struct {
	*Encryptor
}

var _ Primitive = (*Engine)(nil)

// NewEngine returns an Engine that encrypts under publicKey.
func NewEngine(publicKey ecc.Point) *Engine {
	return &Engine{Encryptor: &Encryptor{publicKey: publicKey}}
}

// LoadOrGenerateKeys returns the network encryption keys stored in stg,
// generating and persisting a new key pair on the given curve if there are
// none yet. It fails if the stored keys belong to another curve.
func LoadOrGenerateKeys(stg *storage.Storage, curveType string) (ecc.Point, *big.Int, error) {
	if !curves.IsValid(curveType) {
		return nil, nil, fmt.Errorf("unsupported curve %q", curveType)
	}
	var pub ecc.Point
	var priv *big.Int
	err := stg.Update(func(tx *storage.Tx) error {
		eks, err := tx.EncryptionKeys()
		switch {
		case err == nil:
			if eks.Curve != curveType {
				return fmt.Errorf("stored encryption keys use curve %s, not %s", eks.Curve, curveType)
			}
			pub = curves.New(eks.Curve)
			if err := pub.Unmarshal(eks.PublicKey); err != nil {
				return fmt.Errorf("stored public key: %w", err)
			}
			priv = eks.PrivateKey
			return nil
		case errors.Is(err, storage.ErrNotFound):
			pub, priv, err = elgamal.GenerateKey(curves.New(curveType))
			if err != nil {
				return err
			}
			log.Infow("generated network encryption keys", "curve", curveType)
			return tx.SetEncryptionKeys(&storage.EncryptionKeys{
				Curve:      curveType,
				PublicKey:  pub.Marshal(),
				PrivateKey: priv,
			})
		default:
			return err
		}
	})
	if err != nil {
		return nil, nil, err
	}
	return pub, priv, nil
}

// EncryptZero stores a fresh encryption of zero. Every call yields a
// different ciphertext, hence a different handle.
func (e *Engine) EncryptZero(st Store) (types.Handle, error) {
	ct, err := elgamal.NewCiphertext(e.publicKey).Encrypt(big.NewInt(0), e.publicKey, nil)
	if err != nil {
		return types.Handle{}, err
	}
	return e.store(st, domainZero, ct)
}

// Add stores the homomorphic sum of a and b.
func (e *Engine) Add(st Store, a, b types.Handle) (types.Handle, error) {
	ctA, err := e.load(st, a)
	if err != nil {
		return types.Handle{}, err
	}
	ctB, err := e.load(st, b)
	if err != nil {
		return types.Handle{}, err
	}
	return e.store(st, domainAdd, elgamal.NewCiphertext(e.publicKey).Add(ctA, ctB))
}

// VerifyProof checks the encrypted input and imports its ciphertext.
func (e *Engine) VerifyProof(st Store, handle types.Handle, proof []byte, ctx ProofContext) bool {
	ct, err := e.verifyInput(handle, proof, ctx)
	if err != nil {
		log.Debugw("encrypted input rejected",
			"handle", handle.String(),
			"submitter", ctx.Submitter.Hex(),
			"platformId", ctx.PlatformID,
			"pollIndex", ctx.PollIndex,
			"err", err.Error())
		return false
	}
	if err := st.SetCiphertext(handle, ct.Serialize()); err != nil {
		log.Warnw("cannot import encrypted input", "handle", handle.String(), "err", err.Error())
		return false
	}
	return true
}

func (e *Engine) load(st Store, handle types.Handle) (*elgamal.Ciphertext, error) {
	data, err := st.Ciphertext(handle)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownHandle, handle)
		}
		return nil, err
	}
	return e.decodeCiphertext(data)
}

func (e *Engine) store(st Store, domain []byte, ct *elgamal.Ciphertext) (types.Handle, error) {
	data := ct.Serialize()
	handle := ciphertextHandle(domain, data)
	if err := st.SetCiphertext(handle, data); err != nil {
		return types.Handle{}, fmt.Errorf("store ciphertext: %w", err)
	}
	return handle, nil
}
