package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/utils"
)

// Prints the token secrets as an .env snippet on stdout, so the output can be
// appended straight to a file: go run ./cmd/generate-secrets >> .env
func main() {
	var export bool
	flag.BoolVar(&export, "export", false, "prefix every line with 'export ' for sourcing from a shell")
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	values, err := utils.GenerateSecrets(utils.TokenSecrets)
	if err != nil {
		logger.Fatalf("Failed to generate secrets: %v", err)
	}

	fmt.Print(utils.EnvSnippet(utils.TokenSecrets, values, export))

	logger.Info("Keep these secrets out of version control. Rotating them signs every user out.")
}
