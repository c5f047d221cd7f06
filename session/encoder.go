package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

const sessionFormatVersionCurrent = 1

const (
	flagFederated byte = 1 << 0
)

// Encode serializes a session record into the versioned binary layout
// stored in Redis.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(sessionFormatVersionCurrent)

	if len(s.PrincipalID) > 255 {
		return nil, errors.New("principalID too long")
	}
	buf.WriteByte(byte(len(s.PrincipalID)))
	buf.WriteString(s.PrincipalID)

	if len(s.DisplayName) > 255 {
		return nil, errors.New("displayName too long")
	}
	buf.WriteByte(byte(len(s.DisplayName)))
	buf.WriteString(s.DisplayName)

	var flags byte
	if s.Federated {
		flags |= flagFederated
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, s.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Decode parses a stored session blob. The SessionID is not part of the
// encoding; callers set it from the Redis key.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != sessionFormatVersionCurrent {
		return nil, errors.New("invalid session version")
	}

	s := &Session{}

	pidLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	pid := make([]byte, pidLen)
	if _, err := io.ReadFull(reader, pid); err != nil {
		return nil, err
	}
	s.PrincipalID = string(pid)

	nameLen, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(reader, name); err != nil {
		return nil, err
	}
	s.DisplayName = string(name)

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	s.Federated = flags&flagFederated != 0

	if err := binary.Read(reader, binary.BigEndian, &s.CreatedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &s.ExpiresAt); err != nil {
		return nil, err
	}

	return s, nil
}
