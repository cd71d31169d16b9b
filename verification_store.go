package authcore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ciphemic/authcore/internal"
)

const (
	verificationRecordVersion byte = 1
	purposeEmailVerification       = "email_verification"
)

var errCorruptVerification = errors.New("corrupt verification record")

// verificationStore persists single-use opaque codes in Redis. A code is
// consumed with a WATCH-guarded check-and-delete so concurrent redemptions
// of the same code cannot both succeed.
type verificationStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

type verificationRecord struct {
	UserID    string
	Purpose   string
	ExpiresAt int64
}

func newVerificationStore(redisClient redis.UniversalClient, prefix string, ttl time.Duration) *verificationStore {
	return &verificationStore{redis: redisClient, prefix: prefix, ttl: ttl}
}

func (s *verificationStore) key(code string) string {
	return s.prefix + ":" + code
}

// Issue mints a fresh code bound to userID and purpose. Re-issuing does not
// revoke earlier codes; each expires or is consumed independently.
func (s *verificationStore) Issue(ctx context.Context, userID, purpose string) (string, error) {
	code, err := internal.NewCode()
	if err != nil {
		return "", err
	}

	rec := verificationRecord{
		UserID:    userID,
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(s.ttl).Unix(),
	}

	data, err := encodeVerificationRecord(&rec)
	if err != nil {
		return "", err
	}

	if err := s.redis.Set(ctx, s.key(code), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("store verification code: %w", err)
	}

	return code, nil
}

// Consume atomically redeems a code, returning its record exactly once.
// A second redemption, an expired code, and a code that never existed all
// fail with the same ErrCodeNotFound.
func (s *verificationStore) Consume(ctx context.Context, code, purpose string) (*verificationRecord, error) {
	key := s.key(code)
	var rec *verificationRecord

	txn := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrCodeNotFound
			}
			return err
		}

		decoded, err := decodeVerificationRecord(data)
		if err != nil {
			return err
		}

		if decoded.Purpose != purpose || time.Now().Unix() >= decoded.ExpiresAt {
			// delete the dead record, still under the watch
			_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			if err != nil {
				return err
			}
			return ErrCodeNotFound
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err != nil {
			return err
		}

		rec = decoded
		return nil
	}

	err := s.redis.Watch(ctx, txn, key)
	if errors.Is(err, redis.TxFailedErr) {
		// someone else consumed the key between our read and delete
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, err
	}

	return rec, nil
}

func encodeVerificationRecord(rec *verificationRecord) ([]byte, error) {
	if len(rec.UserID) > 0xFFFF || len(rec.Purpose) > 0xFFFF {
		return nil, errCorruptVerification
	}

	var buf bytes.Buffer
	buf.WriteByte(verificationRecordVersion)

	binary.Write(&buf, binary.BigEndian, uint16(len(rec.UserID)))
	buf.WriteString(rec.UserID)

	binary.Write(&buf, binary.BigEndian, uint16(len(rec.Purpose)))
	buf.WriteString(rec.Purpose)

	binary.Write(&buf, binary.BigEndian, rec.ExpiresAt)

	return buf.Bytes(), nil
}

func decodeVerificationRecord(data []byte) (*verificationRecord, error) {
	buf := bytes.NewReader(data)

	version, err := buf.ReadByte()
	if err != nil || version != verificationRecordVersion {
		return nil, errCorruptVerification
	}

	userID, err := readLenString(buf)
	if err != nil {
		return nil, err
	}

	purpose, err := readLenString(buf)
	if err != nil {
		return nil, err
	}

	var expiresAt int64
	if err := binary.Read(buf, binary.BigEndian, &expiresAt); err != nil {
		return nil, errCorruptVerification
	}
	if buf.Len() != 0 {
		return nil, errCorruptVerification
	}

	return &verificationRecord{
		UserID:    userID,
		Purpose:   purpose,
		ExpiresAt: expiresAt,
	}, nil
}

func readLenString(buf *bytes.Reader) (string, error) {
	var length uint16
	if err := binary.Read(buf, binary.BigEndian, &length); err != nil {
		return "", errCorruptVerification
	}

	raw := make([]byte, length)
	if _, err := io.ReadFull(buf, raw); err != nil {
		return "", errCorruptVerification
	}

	return string(raw), nil
}
