package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starford/scribe/internal/apperr"
	"github.com/starford/scribe/internal/identity"
	"github.com/starford/scribe/internal/testutil"
)

func TestCreateSignInVerify(t *testing.T) {
	idp := testutil.TestIdentity(testutil.TestStore(t))
	ctx := context.Background()

	uid, err := idp.CreateUser(ctx, identity.UserParams{Email: "A@X.com ", Password: "secret1", DisplayName: "Alice"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	token, gotUID, err := idp.SignIn(ctx, "a@x.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if gotUID != uid {
		t.Errorf("uid = %q, want %q", gotUID, uid)
	}

	subject, err := idp.VerifyToken(ctx, token)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if subject != uid {
		t.Errorf("subject = %q, want %q", subject, uid)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	idp := testutil.TestIdentity(testutil.TestStore(t))
	ctx := context.Background()
	p := identity.UserParams{Email: "dup@x.com", Password: "secret1", DisplayName: "Dup"}
	if _, err := idp.CreateUser(ctx, p); err != nil {
		t.Fatalf("first: %v", err)
	}
	p.Email = "DUP@x.com"
	_, err := idp.CreateUser(ctx, p)
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	idp := testutil.TestIdentity(testutil.TestStore(t))
	ctx := context.Background()

	if _, err := idp.CreateUser(ctx, identity.UserParams{Email: "not-an-email", Password: "secret1"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad email err = %v", err)
	}
	if _, err := idp.CreateUser(ctx, identity.UserParams{Email: "b@x.com", Password: "123"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("weak password err = %v", err)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	idp := testutil.TestIdentity(testutil.TestStore(t))
	ctx := context.Background()
	_, _ = idp.CreateUser(ctx, identity.UserParams{Email: "c@x.com", Password: "secret1"})

	if _, _, err := idp.SignIn(ctx, "c@x.com", "wrong"); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("wrong password err = %v", err)
	}
	if _, _, err := idp.SignIn(ctx, "nobody@x.com", "secret1"); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("unknown email err = %v", err)
	}
}

func TestCustomTokenIsNotABearerToken(t *testing.T) {
	idp := testutil.TestIdentity(testutil.TestStore(t))
	ctx := context.Background()
	custom, err := idp.IssueToken(ctx, "uid-1")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if _, err := idp.VerifyToken(ctx, custom); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("custom token verified as ID token: %v", err)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	store := testutil.TestStore(t)
	now := time.Now()
	clock := &now
	idp := testutil.TestIdentity(store, identity.WithClock(func() time.Time { return *clock }))
	ctx := context.Background()

	_, _ = idp.CreateUser(ctx, identity.UserParams{Email: "e@x.com", Password: "secret1"})
	token, _, err := idp.SignIn(ctx, "e@x.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	later := now.Add(2 * time.Hour)
	clock = &later
	if _, err := idp.VerifyToken(ctx, token); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("expired token err = %v", err)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	store := testutil.TestStore(t)
	ctx := context.Background()
	other := identity.NewLocal(store, identity.Config{Secret: "another-secret-0123456789", Issuer: "scribe-test"})
	_, _ = other.CreateUser(ctx, identity.UserParams{Email: "f@x.com", Password: "secret1"})
	token, _, err := other.SignIn(ctx, "f@x.com", "secret1")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	idp := testutil.TestIdentity(store)
	if _, err := idp.VerifyToken(ctx, token); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("foreign token err = %v", err)
	}
	if _, err := idp.VerifyToken(ctx, "garbage"); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("garbage token err = %v", err)
	}
}

func TestDeleteUserFreesEmail(t *testing.T) {
	idp := testutil.TestIdentity(testutil.TestStore(t))
	ctx := context.Background()
	p := identity.UserParams{Email: "g@x.com", Password: "secret1"}

	uid, err := idp.CreateUser(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if err := idp.DeleteUser(ctx, uid); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, _, err := idp.SignIn(ctx, "g@x.com", "secret1"); !errors.Is(err, apperr.ErrUnauthenticated) {
		t.Errorf("signin after delete: %v", err)
	}
	if _, err := idp.CreateUser(ctx, p); err != nil {
		t.Errorf("recreate: %v", err)
	}
	if err := idp.DeleteUser(ctx, uid); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}
