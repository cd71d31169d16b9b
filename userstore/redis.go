// Package userstore is a Redis implementation of authcore.UserProvider.
// Accounts are stored as hashes; a plain key per email enforces uniqueness.
package userstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ciphemic/authcore"
)

// Store persists accounts in Redis. Accounts never expire; there is no TTL
// on any key it writes.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// New returns a Store namespaced under prefix.
func New(redisClient redis.UniversalClient, prefix string) (*Store, error) {
	if redisClient == nil {
		return nil, errors.New("redis client is required")
	}
	if prefix == "" {
		return nil, errors.New("key prefix is required")
	}
	return &Store{redis: redisClient, prefix: prefix}, nil
}

func (s *Store) accountKey(id string) string {
	return s.prefix + ":acct:" + id
}

func (s *Store) emailKey(email string) string {
	return s.prefix + ":email:" + strings.ToLower(email)
}

// Create claims the email with SETNX before writing the record, so two
// concurrent registrations of the same address cannot both succeed.
func (s *Store) Create(ctx context.Context, in authcore.CreateAccountInput) (*authcore.Account, error) {
	account := &authcore.Account{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Role:         in.Role,
		CreatedAt:    time.Now().Unix(),
	}

	claimed, err := s.redis.SetNX(ctx, s.emailKey(in.Email), account.ID, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("claim email: %w", err)
	}
	if !claimed {
		return nil, authcore.ErrEmailExists
	}

	if err := s.redis.HSet(ctx, s.accountKey(account.ID), map[string]any{
		"email":     account.Email,
		"hash":      account.PasswordHash,
		"role":      string(account.Role),
		"verified":  "0",
		"createdAt": strconv.FormatInt(account.CreatedAt, 10),
	}).Err(); err != nil {
		// roll the claim back so the address is not burned
		_ = s.redis.Del(ctx, s.emailKey(in.Email)).Err()
		return nil, fmt.Errorf("store account: %w", err)
	}

	return account, nil
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*authcore.Account, error) {
	id, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, authcore.ErrUserNotFound
		}
		return nil, err
	}
	return s.GetByID(ctx, id)
}

func (s *Store) GetByID(ctx context.Context, id string) (*authcore.Account, error) {
	fields, err := s.redis.HGetAll(ctx, s.accountKey(id)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, authcore.ErrUserNotFound
	}

	createdAt, err := strconv.ParseInt(fields["createdAt"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt account record %s: %w", id, err)
	}

	return &authcore.Account{
		ID:           id,
		Email:        fields["email"],
		PasswordHash: fields["hash"],
		Role:         authcore.Role(fields["role"]),
		Verified:     fields["verified"] == "1",
		CreatedAt:    createdAt,
	}, nil
}

func (s *Store) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	return s.setField(ctx, id, "hash", passwordHash)
}

func (s *Store) MarkVerified(ctx context.Context, id string) error {
	return s.setField(ctx, id, "verified", "1")
}

func (s *Store) setField(ctx context.Context, id, field, value string) error {
	key := s.accountKey(id)

	exists, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return authcore.ErrUserNotFound
	}

	return s.redis.HSet(ctx, key, field, value).Err()
}
