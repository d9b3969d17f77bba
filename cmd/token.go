package cmd

import (
	"fmt"
	"time"

	"marketplace-booking/internal/data/entity"
	"marketplace-booking/pkg/middleware"
	"marketplace-booking/pkg/utils"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var (
	tokenRole string
	tokenTTL  time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token <user-id>",
	Short: "Mint a bearer token for local testing",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config, err := utils.LoadConfig(configPath)
		if err != nil {
			return err
		}
		if config.JWT.Secret == "" {
			return fmt.Errorf("JWT_SECRET is required")
		}
		token, err := middleware.NewToken(config.JWT.Secret, config.JWT.Issuer, args[0], entity.UserRole(tokenRole), tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

var hashKeyCmd = &cobra.Command{
	Use:   "hash-key <operator-key>",
	Short: "Print the bcrypt hash to use as OPERATOR_KEY_HASH",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		hash, err := bcrypt.GenerateFromPassword([]byte(args[0]), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(hash))
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenRole, "role", string(entity.RoleCustomer), "customer, provider or admin")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")
}
