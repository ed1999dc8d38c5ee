package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Путь по умолчанию для Docker Secrets. Переменная, чтобы тесты могли
// подменить каталог.
var secretsDir = "/run/secrets"

// readSecret читает секрет из файла в каталоге Docker Secrets.
func readSecret(secretName string) (string, error) {
	filePath := filepath.Join(secretsDir, secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		// Не добавляем fallback на env var, чтобы поведение было консистентным
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}
