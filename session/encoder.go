package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const recordVersionV1 = 1

const maxFieldLen = 65535

var errCorruptRecord = errors.New("corrupt session record")

// Encode serializes a session to the versioned binary record stored in
// Redis. The session id is the Redis key and is not part of the blob.
func Encode(sess *Session) ([]byte, error) {
	if len(sess.UserID) > maxFieldLen || len(sess.UserAgent) > maxFieldLen {
		return nil, errors.New("session field too long")
	}

	var buf bytes.Buffer
	buf.WriteByte(recordVersionV1)

	writeString := func(s string) error {
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(s))); err != nil {
			return err
		}
		buf.WriteString(s)
		return nil
	}

	if err := writeString(sess.UserID); err != nil {
		return nil, err
	}
	if err := writeString(sess.UserAgent); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, sess.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, sess.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a binary session record. The caller sets ID from the key.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, errCorruptRecord
	}
	if version != recordVersionV1 {
		return nil, errCorruptRecord
	}

	readString := func() (string, error) {
		var n uint16
		if err := binary.Read(reader, binary.BigEndian, &n); err != nil {
			return "", errCorruptRecord
		}
		b := make([]byte, n)
		if _, err := io.ReadFull(reader, b); err != nil {
			return "", errCorruptRecord
		}
		return string(b), nil
	}

	sess := &Session{}
	if sess.UserID, err = readString(); err != nil {
		return nil, err
	}
	if sess.UserAgent, err = readString(); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &sess.CreatedAt); err != nil {
		return nil, errCorruptRecord
	}
	if err := binary.Read(reader, binary.BigEndian, &sess.ExpiresAt); err != nil {
		return nil, errCorruptRecord
	}

	return sess, nil
}
