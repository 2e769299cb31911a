package crypto

import (
	"bytes"
	"testing"
)

func TestSealOpenRoundTrip(t *testing.T) {
	for _, alg := range []Algorithm{XChaCha20Poly1305, AES256GCM} {
		key, err := NewSessionKey()
		if err != nil {
			t.Fatalf("session key: %v", err)
		}

		env, err := Seal(alg, key, []byte("nonce-s"), []byte("alice"))
		if err != nil {
			t.Fatalf("%s seal: %v", alg, err)
		}

		decoded, err := UnmarshalEnvelope(env.Marshal())
		if err != nil {
			t.Fatalf("%s unmarshal: %v", alg, err)
		}

		plain, err := Open(key, decoded, []byte("alice"))
		if err != nil {
			t.Fatalf("%s open: %v", alg, err)
		}
		if string(plain) != "nonce-s" {
			t.Errorf("%s: got %q, want %q", alg, plain, "nonce-s")
		}
	}
}

func TestOpenWrongKeyFails(t *testing.T) {
	key, _ := NewSessionKey()
	other, _ := NewSessionKey()

	env, err := Seal(DefaultAlgorithm, key, []byte("secret"), nil)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if _, err := Open(other, env, nil); err == nil {
		t.Error("expected open with wrong key to fail")
	}
}

func TestOpenWrongAADFails(t *testing.T) {
	key, _ := NewSessionKey()

	env, err := Seal(DefaultAlgorithm, key, []byte("secret"), []byte("alice"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if _, err := Open(key, env, []byte("bob")); err == nil {
		t.Error("expected open with different aad to fail")
	}
}

func TestUnmarshalEnvelopeTruncated(t *testing.T) {
	if _, err := UnmarshalEnvelope([]byte{1}); err == nil {
		t.Error("expected error for 1-byte envelope")
	}
	if _, err := UnmarshalEnvelope([]byte{1, 24, 0, 0}); err == nil {
		t.Error("expected error for truncated nonce")
	}
}

func TestSealToOpenSealed(t *testing.T) {
	kp, err := GenerateBoxKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	sealed, err := SealTo(kp.Public, []byte("challenge"))
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	msg, err := OpenSealed(kp, sealed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if !bytes.Equal(msg, []byte("challenge")) {
		t.Errorf("got %q, want %q", msg, "challenge")
	}

	other, _ := GenerateBoxKey()
	if _, err := OpenSealed(other, sealed); err == nil {
		t.Error("expected open with another key to fail")
	}
}

func TestSignVerify(t *testing.T) {
	id, err := GenerateIdentity("alice")
	if err != nil {
		t.Fatalf("identity: %v", err)
	}

	pub := id.Public()
	sig := id.Signer().Sign(DomainIdentity, []byte("alice"))

	if !Verify(sig, DomainIdentity, []byte("alice"), pub.Sign) {
		t.Error("valid signature rejected")
	}
	if Verify(sig, DomainBid, []byte("alice"), pub.Sign) {
		t.Error("signature accepted under another domain")
	}
	if Verify(sig, DomainIdentity, []byte("bob"), pub.Sign) {
		t.Error("signature accepted for another message")
	}

	other, _ := GenerateIdentity("mallory")
	if Verify(sig, DomainIdentity, []byte("alice"), other.Public().Sign) {
		t.Error("signature accepted under another key")
	}
}

func TestLoadIdentityDeterministic(t *testing.T) {
	id, err := GenerateIdentity("alice")
	if err != nil {
		t.Fatalf("identity: %v", err)
	}

	again, err := LoadIdentity("alice", id.Box, id.SignSeed)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if !bytes.Equal(id.Public().Sign, again.Public().Sign) {
		t.Error("signing key not derived deterministically from seed")
	}
}
