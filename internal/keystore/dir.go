package keystore

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"AuctionHouse/internal/crypto"
)

const (
	publicFile  = "public.yaml"
	privateFile = "private.yaml"
)

// publicRecord is the on-disk form of a public identity.
type publicRecord struct {
	Name string `yaml:"name"`
	Box  string `yaml:"box_public"`
	Sign string `yaml:"sign_public"`
}

// privateRecord is the on-disk form of a full identity.
type privateRecord struct {
	Name     string `yaml:"name"`
	BoxPub   string `yaml:"box_public"`
	BoxPriv  string `yaml:"box_private"`
	SignSeed string `yaml:"sign_seed"`
}

// Dir is a Store backed by a directory with one subdirectory per identity:
//
//	<root>/<identity>/public.yaml
//	<root>/<identity>/private.yaml
//
// Private files are only present for identities owned by this process.
type Dir struct {
	root string
}

// NewDir opens a key directory, creating it if needed.
func NewDir(root string) (*Dir, error) {
	if err := os.MkdirAll(root, 0o700); err != nil {
		return nil, fmt.Errorf("create key directory:\n%w", err)
	}

	return &Dir{root: root}, nil
}

// Save writes both halves of id.
func (d *Dir) Save(id *crypto.Identity) error {
	dir, err := d.identityDir(id.Name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create identity directory:\n%w", err)
	}

	if err := d.SavePublic(id.Public()); err != nil {
		return err
	}

	priv := privateRecord{
		Name:     id.Name,
		BoxPub:   encode(id.Box.Public[:]),
		BoxPriv:  encode(id.Box.Private[:]),
		SignSeed: encode(id.SignSeed),
	}

	return writeYAML(filepath.Join(dir, privateFile), priv, 0o600)
}

// SavePublic writes the public half of an identity.
func (d *Dir) SavePublic(pub crypto.PublicIdentity) error {
	dir, err := d.identityDir(pub.Name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create identity directory:\n%w", err)
	}

	rec := publicRecord{
		Name: pub.Name,
		Box:  encode(pub.Box[:]),
		Sign: encode(pub.Sign),
	}

	return writeYAML(filepath.Join(dir, publicFile), rec, 0o644)
}

// Public implements Store.
func (d *Dir) Public(name string) (crypto.PublicIdentity, error) {
	dir, err := d.identityDir(name)
	if err != nil {
		return crypto.PublicIdentity{}, err
	}

	var rec publicRecord
	if err := readYAML(filepath.Join(dir, publicFile), &rec); err != nil {
		return crypto.PublicIdentity{}, notFound(name, err)
	}

	box, err := decodeFixed(rec.Box, crypto.BoxKeySize)
	if err != nil {
		return crypto.PublicIdentity{}, fmt.Errorf("decode box key of %s:\n%w", name, err)
	}

	sign, err := decodeFixed(rec.Sign, crypto.SignPublicKeySize)
	if err != nil {
		return crypto.PublicIdentity{}, fmt.Errorf("decode sign key of %s:\n%w", name, err)
	}

	return crypto.PublicIdentity{Name: name, Box: crypto.BoxPublicKey(box), Sign: sign}, nil
}

// Identity implements Store.
func (d *Dir) Identity(name string) (*crypto.Identity, error) {
	dir, err := d.identityDir(name)
	if err != nil {
		return nil, err
	}

	var rec privateRecord
	if err := readYAML(filepath.Join(dir, privateFile), &rec); err != nil {
		return nil, notFound(name, err)
	}

	pub, err := decodeFixed(rec.BoxPub, crypto.BoxKeySize)
	if err != nil {
		return nil, fmt.Errorf("decode box public key of %s:\n%w", name, err)
	}

	priv, err := decodeFixed(rec.BoxPriv, crypto.BoxKeySize)
	if err != nil {
		return nil, fmt.Errorf("decode box private key of %s:\n%w", name, err)
	}

	seed, err := decodeFixed(rec.SignSeed, crypto.SignSeedSize)
	if err != nil {
		return nil, fmt.Errorf("decode sign seed of %s:\n%w", name, err)
	}

	boxKey := &crypto.BoxKeyPair{
		Public:  crypto.BoxPublicKey(pub),
		Private: crypto.BoxPrivateKey(priv),
	}

	return crypto.LoadIdentity(name, boxKey, seed)
}

// identityDir returns the directory of name, rejecting names that would escape root.
func (d *Dir) identityDir(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid identity name %q", name)
	}

	return filepath.Join(d.root, name), nil
}

// notFound maps a missing file to ErrUnknownIdentity.
func notFound(name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrUnknownIdentity, name)
	}

	return fmt.Errorf("read keys of %s:\n%w", name, err)
}

// writeYAML marshals v to path.
func writeYAML(path string, v any, perm os.FileMode) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s:\n%w", filepath.Base(path), err)
	}

	if err := os.WriteFile(path, data, perm); err != nil {
		return fmt.Errorf("write %s:\n%w", path, err)
	}

	return nil
}

// readYAML unmarshals path into v.
func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, v)
}

func encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

// decodeFixed decodes a base64 value that must be exactly size bytes long.
func decodeFixed(s string, size int) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}

	if len(b) != size {
		return nil, fmt.Errorf("got %d bytes, want %d", len(b), size)
	}

	return b, nil
}
