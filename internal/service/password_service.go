package service

// PasswordCredentialView is the stored material a PasswordService verifies against.
type PasswordCredentialView interface {
	GetAlgo() string
	GetHash() []byte
	GetSalt() []byte
	GetParamsJSON() []byte
	GetPasswordVer() int
}

type PasswordService interface {
	Hash(password string) (hash, salt, paramsJSON []byte, algo string, ver int, err error)
	Verify(password string, cred PasswordCredentialView) (rehashNeeded bool, ok bool)
}
