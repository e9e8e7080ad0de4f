package types

// Origin is the authority a call is made under: either the governance root
// or a signed account.
type Origin struct {
	root   bool
	signer AccountID
}

func RootOrigin() Origin {
	return Origin{root: true}
}

func SignedOrigin(account AccountID) Origin {
	return Origin{signer: account}
}

func (o Origin) IsRoot() bool {
	return o.root
}

// Signer returns the signing account of a non-root origin.
func (o Origin) Signer() (AccountID, bool) {
	if o.root {
		return AccountID{}, false
	}
	return o.signer, true
}

// EnsureRoot fails with ErrBadOrigin unless o is the governance root.
func (o Origin) EnsureRoot() error {
	if !o.root {
		return ErrBadOrigin
	}
	return nil
}

// EnsureSigned returns the signer, failing with ErrBadOrigin for root or
// the zero account.
func (o Origin) EnsureSigned() (AccountID, error) {
	signer, ok := o.Signer()
	if !ok || signer.IsZero() {
		return AccountID{}, ErrBadOrigin
	}
	return signer, nil
}

func (o Origin) String() string {
	if o.root {
		return "root"
	}
	return "signed(" + o.signer.String() + ")"
}
