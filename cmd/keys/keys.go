package keys

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"copyexecutor/src/security"
)

// Encrypt reads a wallet private key from stdin and prints the
// ciphertext suitable for WALLET_PRIVATE_KEY_ENC.
func Encrypt() error {
	fmt.Print("private key> ")

	reader := bufio.NewScanner(os.Stdin)
	if !reader.Scan() {
		return fmt.Errorf("no input")
	}
	plaintext := strings.TrimSpace(reader.Text())
	if plaintext == "" {
		return fmt.Errorf("empty key")
	}

	encrypted, err := security.EncryptString(plaintext)
	if err != nil {
		return fmt.Errorf("encrypt key: %w", err)
	}

	fmt.Println(encrypted)
	return nil
}
