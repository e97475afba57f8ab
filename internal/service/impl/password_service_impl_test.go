package impl

import (
	"testing"

	"secureguard/internal/domain"
)

// cheap parameters keep the suite fast; production uses DefaultArgon2Params
var testArgon2Params = Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func hashToCredential(t *testing.T, ps *PasswordServiceImpl, password string) *domain.PasswordCredential {
	t.Helper()
	hash, salt, params, algo, ver, err := ps.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return &domain.PasswordCredential{Algo: algo, Hash: hash, Salt: salt, ParamsJSON: params, PasswordVer: ver}
}

func TestPasswordHashVerify(t *testing.T) {
	ps := NewPasswordServiceWithParams(testArgon2Params, 1)
	cred := hashToCredential(t, ps, "pw123456")

	if string(cred.Hash) == "pw123456" || len(cred.Salt) != int(testArgon2Params.SaltLen) {
		t.Fatalf("hash must be derived and salted")
	}
	if rehash, ok := ps.Verify("pw123456", cred); !ok || rehash {
		t.Fatalf("expected ok without rehash, got ok=%v rehash=%v", ok, rehash)
	}
	for i := 0; i < 3; i++ {
		if _, ok := ps.Verify("pw1234567", cred); ok {
			t.Fatalf("wrong password accepted on attempt %d", i+1)
		}
	}
}

func TestPasswordSaltsDiffer(t *testing.T) {
	ps := NewPasswordServiceWithParams(testArgon2Params, 1)
	a := hashToCredential(t, ps, "same-password")
	b := hashToCredential(t, ps, "same-password")
	if string(a.Hash) == string(b.Hash) {
		t.Fatalf("identical passwords must not produce identical hashes")
	}
}

func TestPasswordRehashOnPolicyChange(t *testing.T) {
	old := NewPasswordServiceWithParams(testArgon2Params, 1)
	cred := hashToCredential(t, old, "pw123456")

	stronger := testArgon2Params
	stronger.Time = 2
	current := NewPasswordServiceWithParams(stronger, 2)

	rehash, ok := current.Verify("pw123456", cred)
	if !ok || !rehash {
		t.Fatalf("expected verification with rehash, got ok=%v rehash=%v", ok, rehash)
	}
	if rehash, ok := current.Verify("nope-nope", cred); ok || rehash {
		t.Fatalf("wrong password must never request rehash")
	}
}

func TestPasswordRejectsForeignAlgorithm(t *testing.T) {
	ps := NewPasswordServiceWithParams(testArgon2Params, 1)
	cred := hashToCredential(t, ps, "pw123456")
	cred.Algo = "bcrypt"
	if _, ok := ps.Verify("pw123456", cred); ok {
		t.Fatalf("credential with another algorithm must not verify")
	}
	if _, _, _, _, _, err := ps.Hash(""); err == nil {
		t.Fatalf("expected error hashing empty password")
	}
}
