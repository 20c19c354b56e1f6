package identity

import (
	"encoding"
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
)

// TagName is the struct tag that marks a key field.
const TagName = "key"

// ErrUnexportedKeyField is returned when a key would contain an unexported
// struct field. The encoder skips such fields, so keys differing only there
// would collapse into one identity.
var ErrUnexportedKeyField = errors.New("identity: key field must be exported")

// namespace scopes derived identities so they never collide with ids
// generated by other name-based UUID users.
var namespace = uuid.MustParse("3d5c7b9e-2f41-5a8e-b7c6-0e9d1f2a4b6c")

var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

// ID is an opaque, comparable identity usable as a map key.
type ID uuid.UUID

// Zero is the identity of an undeclared descriptor.
var Zero ID

// New returns a fresh random identity.
func New() ID {
	return ID(uuid.New())
}

// String returns the canonical UUID text form.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether the identity is unset.
func (id ID) IsZero() bool {
	return id == Zero
}

// envelope is the canonical document hashed for a keyed identity.
type envelope struct {
	Label  string `cbor:"1,keyasint"`
	Type   string `cbor:"2,keyasint"`
	Fields any    `cbor:"3,keyasint"`
}

// Derive computes the keyed identity for label and key.
// It is pure: equal inputs always yield equal identities.
func Derive(label string, key any) (ID, error) {
	fields, typeName, err := keyFields(key)
	if err != nil {
		return Zero, fmt.Errorf("derive identity for %q: %w", label, err)
	}

	data, err := encMode.Marshal(envelope{Label: label, Type: typeName, Fields: fields})
	if err != nil {
		return Zero, fmt.Errorf("derive identity for %q: encode key: %w", label, err)
	}
	return ID(uuid.NewSHA1(namespace, data)), nil
}

// MustDerive is like Derive but panics if the key cannot be encoded.
func MustDerive(label string, key any) ID {
	id, err := Derive(label, key)
	if err != nil {
		panic(err)
	}
	return id
}

// keyFields selects the participating part of key.
func keyFields(key any) (any, string, error) {
	if key == nil {
		return nil, "<nil>", nil
	}

	t := reflect.TypeOf(key)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	typeName := t.String()

	v := reflect.ValueOf(key)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, typeName, nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		if err := checkEncodable(t, map[reflect.Type]bool{}); err != nil {
			return nil, typeName, err
		}
		return v.Interface(), typeName, nil
	}

	tagged := make(map[string]any)
	seen := make(map[reflect.Type]bool)
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, ok := f.Tag.Lookup(TagName)
		if !ok {
			continue
		}
		if !f.IsExported() {
			return nil, typeName, fmt.Errorf("%w: %s.%s", ErrUnexportedKeyField, t.Name(), f.Name)
		}
		if err := checkEncodable(f.Type, seen); err != nil {
			return nil, typeName, err
		}
		if name == "" {
			name = f.Name
		}
		tagged[name] = v.Field(i).Interface()
	}
	if len(tagged) == 0 {
		if err := checkEncodable(t, seen); err != nil {
			return nil, typeName, err
		}
		return v.Interface(), typeName, nil
	}
	return tagged, typeName, nil
}

var (
	cborMarshaler   = reflect.TypeFor[cbor.Marshaler]()
	binaryMarshaler = reflect.TypeFor[encoding.BinaryMarshaler]()
	textMarshaler   = reflect.TypeFor[encoding.TextMarshaler]()
)

// checkEncodable rejects types whose values the encoder would encode only
// partially: structs with unexported fields, reached directly or through
// pointers, slices, arrays and maps. Types that marshal themselves are
// trusted. Interface-typed fields are not inspected.
func checkEncodable(t reflect.Type, seen map[reflect.Type]bool) error {
	if seen[t] {
		return nil
	}
	seen[t] = true

	for _, m := range []reflect.Type{cborMarshaler, binaryMarshaler, textMarshaler} {
		if t.Implements(m) || reflect.PointerTo(t).Implements(m) {
			return nil
		}
	}

	switch t.Kind() {
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return checkEncodable(t.Elem(), seen)
	case reflect.Map:
		if err := checkEncodable(t.Key(), seen); err != nil {
			return err
		}
		return checkEncodable(t.Elem(), seen)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Tag.Get("cbor") == "-" {
				continue
			}
			// Embedded structs of unexported type still have their
			// exported fields promoted.
			if !f.IsExported() && !(f.Anonymous && indirect(f.Type).Kind() == reflect.Struct) {
				return fmt.Errorf("%w: %s.%s", ErrUnexportedKeyField, t.String(), f.Name)
			}
			if err := checkEncodable(f.Type, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

func indirect(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
