package reportconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML options file layered over Default()
// KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("read options: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Parse decodes YAML options from r and validates the result.
// An empty document yields the defaults.
func Parse(r io.Reader) (Options, error) {
	opts := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&opts); err != nil && err != io.EOF {
		return Options{}, fmt.Errorf("decode options: %w", err)
	}

	if err := Validate(opts); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// Hash generates a SHA256 hash of the options (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(opts Options) (string, error) {
	jsonBytes, err := json.Marshal(opts)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
