package authsvc

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"rentloop/model"
	authrepo "rentloop/repository/auth"
	"rentloop/util/database"
	"rentloop/util/hash"
	jwtutil "rentloop/util/jwt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrEmailTaken    = errors.New("email already registered")
	ErrBadInput      = errors.New("bad input")
	ErrInvalidCreds  = errors.New("invalid credentials")
	ErrUsernameTaken = errors.New("username already taken")
)

type WalletRepo interface {
	CreateForUser(ctx context.Context, tx *sql.Tx, userID int64) error
}

type Service interface {
	Register(ctx context.Context, req model.RegisterReq) (*model.User, string, error)
	Login(ctx context.Context, req model.LoginReq) (*model.User, string, error)
}

type service struct {
	txr     database.TxRunner
	ur      authrepo.Repo
	wallets WalletRepo
	secret  string
}

func New(txr database.TxRunner, ur authrepo.Repo, wallets WalletRepo, secret string) Service {
	return &service{txr: txr, ur: ur, wallets: wallets, secret: secret}
}

// Register creates the user and their wallet in one transaction.
func (s *service) Register(ctx context.Context, req model.RegisterReq) (*model.User, string, error) {
	hashed, err := hash.HashPassword(req.Password)
	if err != nil {
		return nil, "", err
	}

	u := &model.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Username:     req.Username,
		PasswordHash: hashed,
		Phone:        req.Phone,
		RatingAvg:    5.0,
	}

	err = s.txr.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.ur.Create(ctx, tx, u); err != nil {
			if derr := mapDuplicateErr(err); derr != nil {
				return derr
			}
			return err
		}
		return s.wallets.CreateForUser(ctx, tx, u.ID)
	})
	if err != nil {
		return nil, "", err
	}

	token, err := jwtutil.Issue(s.secret, u.ID, "user", 24)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func mapDuplicateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		cn := strings.ToLower(pgErr.ConstraintName)
		msg := strings.ToLower(pgErr.Message)

		if strings.Contains(cn, "users_email") || strings.Contains(msg, "email") {
			return ErrEmailTaken
		}
		if strings.Contains(cn, "users_username") || strings.Contains(msg, "username") {
			return ErrUsernameTaken
		}
		return ErrBadInput
	}
	return nil
}

func (s *service) Login(ctx context.Context, req model.LoginReq) (*model.User, string, error) {
	u, err := s.ur.ByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, "", ErrInvalidCreds
	}
	if !hash.Check(u.PasswordHash, req.Password) {
		return nil, "", ErrInvalidCreds
	}
	token, err := jwtutil.Issue(s.secret, u.ID, "user", 24)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}
