package cmd

import (
	"context"

	"example.com/ecoguard/config"

	"github.com/spf13/cobra"
)

// seedCmd represents the seed command
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default accounts and thresholds",
	Long: `Creates the default operator accounts and the TEMP, HUMIDITY, CO2 and LIGHT
thresholds when they do not exist yet. Existing records are left untouched.`,
	Run: func(cmd *cobra.Command, args []string) {
		runSeed()
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	repo, closeRepo, err := openRepository(cfg, storePostgres, true)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer closeRepo()

	svc, err := newOfflineService(cfg, repo)
	if err != nil {
		log.Fatalf("Failed to initialize service: %v", err)
	}
	defer svc.Shutdown()

	if err := svc.Seed(context.Background()); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Info("Seeding completed successfully")
}
