// Encoding / hashing (spec §4.6). hex/base64 and sha2 use the standard
// library; sha3 uses golang.org/x/crypto/sha3, already a teacher
// transitive dependency via app.go's terminal package import — DESIGN.md
// records why hex/base64/sha2 stay on stdlib (no repo in the pack reaches
// for a third-party equivalent).
package builtins

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"os"

	"golang.org/x/crypto/sha3"

	"github.com/hsab-shell/hsab/pkg/errtype"
	"github.com/hsab-shell/hsab/pkg/value"
)

func popBytes(h Host, op string) ([]byte, error) {
	v, err := h.Pop(op)
	if err != nil {
		return nil, err
	}
	switch v.Tag {
	case value.TagBytes:
		return v.Bytes(), nil
	case value.TagLiteral, value.TagOutput:
		return []byte(v.AsArg()), nil
	default:
		return nil, errtype.TypeMismatch("Bytes or string", value.TypeOf(v))
	}
}

func registerEncoding(r *Registry) {
	r.stack("to-hex", func(h Host) error {
		b, err := popBytes(h, "to-hex")
		if err != nil {
			return err
		}
		h.Push(value.Literal(hex.EncodeToString(b)))
		return nil
	})
	r.stack("from-hex", func(h Host) error {
		v, err := h.Pop("from-hex")
		if err != nil {
			return err
		}
		b, err := hex.DecodeString(v.AsArg())
		if err != nil {
			return errtype.Exec("invalid hex: " + err.Error())
		}
		h.Push(value.Bytes(b))
		return nil
	})
	r.stack("to-base64", func(h Host) error {
		b, err := popBytes(h, "to-base64")
		if err != nil {
			return err
		}
		h.Push(value.Literal(base64.StdEncoding.EncodeToString(b)))
		return nil
	})
	r.stack("from-base64", func(h Host) error {
		v, err := h.Pop("from-base64")
		if err != nil {
			return err
		}
		b, err := base64.StdEncoding.DecodeString(v.AsArg())
		if err != nil {
			return errtype.Exec("invalid base64: " + err.Error())
		}
		h.Push(value.Bytes(b))
		return nil
	})
	r.stack("as-bytes", func(h Host) error {
		v, err := h.Pop("as-bytes")
		if err != nil {
			return err
		}
		h.Push(value.Bytes([]byte(v.AsArg())))
		return nil
	})
	r.stack("to-bytes", func(h Host) error {
		v, err := h.Pop("to-bytes")
		if err != nil {
			return err
		}
		h.Push(value.Bytes([]byte(v.AsArg())))
		return nil
	})
	r.stack("to-string", func(h Host) error {
		v, err := h.Pop("to-string")
		if err != nil {
			return err
		}
		if v.Tag == value.TagBytes {
			h.Push(value.Literal(string(v.Bytes())))
			return nil
		}
		h.Push(value.Literal(v.AsArg()))
		return nil
	})
	r.strArg("read-bytes", func(h Host, args []string) ([]value.Value, int, error) {
		if len(args) < 1 {
			return nil, 0, errtype.StackUnderflow("read-bytes")
		}
		b, err := os.ReadFile(args[0])
		if err != nil {
			return nil, 1, errtype.Io(err)
		}
		return []value.Value{value.Bytes(b)}, 1, nil
	})

	hashFn := func(name string, sum func([]byte) []byte) StackFn {
		return func(h Host) error {
			b, err := popBytes(h, name)
			if err != nil {
				return err
			}
			h.Push(value.Literal(hex.EncodeToString(sum(b))))
			return nil
		}
	}
	r.stack("sha256", hashFn("sha256", func(b []byte) []byte { s := sha256.Sum256(b); return s[:] }))
	r.stack("sha384", hashFn("sha384", func(b []byte) []byte { s := sha512.Sum384(b); return s[:] }))
	r.stack("sha512", hashFn("sha512", func(b []byte) []byte { s := sha512.Sum512(b); return s[:] }))
	r.stack("sha3-256", hashFn("sha3-256", func(b []byte) []byte { s := sha3.Sum256(b); return s[:] }))
	r.stack("sha3-384", hashFn("sha3-384", func(b []byte) []byte { s := sha3.Sum384(b); return s[:] }))
	r.stack("sha3-512", hashFn("sha3-512", func(b []byte) []byte { s := sha3.Sum512(b); return s[:] }))

	fileHashFn := func(name string, sum func([]byte) []byte) StringArgFn {
		return func(h Host, args []string) ([]value.Value, int, error) {
			if len(args) < 1 {
				return nil, 0, errtype.StackUnderflow(name)
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return nil, 1, errtype.Io(err)
			}
			digest := sum(data)
			return []value.Value{value.Literal(hex.EncodeToString(digest))}, 1, nil
		}
	}
	r.strArg("sha256-file", fileHashFn("sha256-file", func(b []byte) []byte { s := sha256.Sum256(b); return s[:] }))
	r.strArg("sha3-256-file", fileHashFn("sha3-256-file", func(b []byte) []byte { s := sha3.Sum256(b); return s[:] }))
}
