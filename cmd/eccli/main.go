package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/WhitehatD/Student-Identity-Consent/chain"
	"github.com/WhitehatD/Student-Identity-Consent/cmd/educonsent/config"
	"github.com/WhitehatD/Student-Identity-Consent/consent"
	"github.com/WhitehatD/Student-Identity-Consent/internal/logger"
	"github.com/WhitehatD/Student-Identity-Consent/storage"
)

var rootCmd = &cobra.Command{
	Use:          "eccli",
	Short:        "eccli inspects consents and wallet registrations",
	Long:         "eccli inspects the consents recorded on chain and manages the off-chain wallet registrations",
	SilenceUsage: true,
}

var configFile string

func loadConfig() (*config.Config, error) {
	if err := config.Load(configFile); err != nil {
		return nil, err
	}
	c := config.Get()
	if err := logger.Init(c.Logging.InternalLogger()); err != nil {
		return nil, err
	}
	return c, nil
}

// withConsentService runs fn with a consent.Service connected to the
// configured node
func withConsentService(ctx context.Context, fn func(s *consent.Service) error) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	client, err := chain.Dial(ctx, c.Chain.ClientConfig())
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(consent.NewService(client))
}

// withStorage runs fn with the configured database
func withStorage(fn func(s *storage.Storage) error) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := config.LoadStorage(c.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			log.WithError(err).Error("could not close database")
		}
	}()
	return fn(s)
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "the config file to use")
	rootCmd.AddCommand(consentCmd, walletCmd)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
