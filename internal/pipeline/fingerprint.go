package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// Version is embedded in every fingerprint. Bumping it invalidates every cached artifact.
const Version = "jarsmith-3"

// SideInput is something besides upstream artifacts that a stage's output depends on.
type SideInput interface {
	Key() string
	Digest() (string, error)
}

type fileInput string

// FileInput fingerprints the content of a file.
func FileInput(path string) SideInput {
	return fileInput(path)
}

func (f fileInput) Key() string {
	return "file:" + string(f)
}

func (f fileInput) Digest() (string, error) {
	fh, err := os.Open(string(f))
	if err != nil {
		return "", fmt.Errorf("side input: %w", err)
	}
	defer fh.Close()

	h := sha256.New()
	if _, err := io.Copy(h, fh); err != nil {
		return "", fmt.Errorf("side input %s: %w", string(f), err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

type valueInput struct {
	key    string
	values []string
}

// ValueInput fingerprints configuration values.
func ValueInput(key string, values ...string) SideInput {
	return valueInput{key: key, values: values}
}

func (v valueInput) Key() string {
	return "value:" + v.key
}

func (v valueInput) Digest() (string, error) {
	return strings.Join(v.values, "\x00"), nil
}

// Fingerprint combines Version, the stage name and the digests of its side inputs.
func Fingerprint(stage string, inputs []SideInput) (string, error) {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%s\n", Version, stage)

	for _, in := range inputs {
		d, err := in.Digest()
		if err != nil {
			return "", err
		}

		fmt.Fprintf(h, "%s=%s\n", in.Key(), d)
	}

	return Version + "+" + hex.EncodeToString(h.Sum(nil))[:16], nil
}
