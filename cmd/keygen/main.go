// Command keygen derives a symmetric data-encryption key from an
// operator-supplied passphrase, for local development and testing
// against keymanager.Static — this core never persists key material
// itself (its Non-goals exclude that), so a deployment needs something
// to produce the base64 strings that go into config.StaticConfig.Keys.
package main

import (
	"bufio"
	"crypto/sha256"
	"encoding/base64"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/hkdf"

	"github.com/kenneth/xmlenc-transform/internal/registry"
)

func main() {
	keyID := flag.String("key-id", "", "key ID this derived key will be registered under")
	algName := flag.String("alg", "aes256-cbc", "transform descriptor name whose key length to derive for")
	salt := flag.String("salt", "", "HKDF salt (optional, but recommended to be unique per key ID)")
	info := flag.String("info", "", "HKDF info/context string (optional)")
	flag.Parse()

	if *keyID == "" {
		fmt.Fprintln(os.Stderr, "keygen: -key-id is required")
		os.Exit(1)
	}

	desc, err := registry.Lookup(*algName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		os.Exit(1)
	}

	passphrase, err := readPassphrase()
	if err != nil {
		fmt.Fprintf(os.Stderr, "keygen: %v\n", err)
		os.Exit(1)
	}

	reader := hkdf.New(sha256.New, passphrase, []byte(*salt), []byte(*info))
	key := make([]byte, desc.KeyLen)
	if _, err := io.ReadFull(reader, key); err != nil {
		fmt.Fprintf(os.Stderr, "keygen: derive key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("key_manager:\n  static:\n    keys:\n      %s: %s\n", *keyID, base64.StdEncoding.EncodeToString(key))
}

// readPassphrase reads a passphrase from the KEYGEN_PASSPHRASE
// environment variable, falling back to a single line on stdin — this
// core's Non-goals exclude key-material persistence, so this command
// has no business caching or echoing it anywhere else.
func readPassphrase() ([]byte, error) {
	if p := os.Getenv("KEYGEN_PASSPHRASE"); p != "" {
		return []byte(p), nil
	}
	fmt.Fprint(os.Stderr, "Passphrase: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read passphrase: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return nil, fmt.Errorf("empty passphrase")
	}
	return []byte(line), nil
}
