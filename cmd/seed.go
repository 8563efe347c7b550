/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/assignhub/apiserver/config"
	"github.com/assignhub/apiserver/internal/db"
	"github.com/assignhub/apiserver/internal/store"
	"github.com/assignhub/apiserver/types"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

// seedCmd represents the seed command. It creates the initial admin
// account so a fresh deployment has someone to submit assignments to.
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the initial admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		username := strings.TrimSpace(cfg.InitialAdmin.Username)
		if username == "" || cfg.InitialAdmin.Password == "" {
			return errors.New("INITIAL_ADMIN_USERNAME and INITIAL_ADMIN_PASSWORD are required")
		}

		dbConn, err := db.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer dbConn.Close()

		hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.InitialAdmin.Password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		users := store.NewUserRepository(dbConn)
		admin, err := users.Create(cmd.Context(), types.User{
			Username:     username,
			Role:         types.RoleAdmin,
			PasswordHash: string(hashed),
		})
		if err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				fmt.Printf("admin %q already exists\n", username)
				return nil
			}
			return err
		}

		fmt.Printf("created admin %q (id %d)\n", admin.Username, admin.ID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
