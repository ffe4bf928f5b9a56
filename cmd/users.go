package cmd

import (
	"context"
	"fmt"
	"time"

	"example.com/ecoguard/config"
	"example.com/ecoguard/internal/models"

	"github.com/spf13/cobra"
)

var (
	newUsername string
	newPassword string
	newRole     string
)

// usersCmd represents the users command
var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage operator accounts",
	Long:  `Create and list the accounts that can log in to the admin and user views.`,
}

var addUserCmd = &cobra.Command{
	Use:   "add",
	Short: "Create an operator account",
	Long: `Create an operator account with one of the roles:
  ADMIN: full access to thresholds, commands, alerts and device status
  USER:  read-only access to thresholds and alerts`,
	Run: func(cmd *cobra.Command, args []string) {
		addUser()
	},
}

var listUsersCmd = &cobra.Command{
	Use:   "list",
	Short: "List operator accounts",
	Run: func(cmd *cobra.Command, args []string) {
		listUsers()
	},
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(addUserCmd)
	usersCmd.AddCommand(listUsersCmd)

	addUserCmd.Flags().StringVar(&newUsername, "username", "", "Account name")
	addUserCmd.Flags().StringVar(&newPassword, "password", "", "Account password")
	addUserCmd.Flags().StringVar(&newRole, "role", string(models.RoleUser), "Account role (ADMIN, USER)")
	_ = addUserCmd.MarkFlagRequired("username")
	_ = addUserCmd.MarkFlagRequired("password")
}

func addUser() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	role, err := models.ParseRole(newRole)
	if err != nil {
		log.Fatalf("Invalid role: %v", err)
	}

	repo, closeRepo, err := openRepository(cfg, storePostgres, false)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer closeRepo()

	svc, err := newOfflineService(cfg, repo)
	if err != nil {
		log.Fatalf("Failed to initialize service: %v", err)
	}
	defer svc.Shutdown()

	user, err := svc.CreateUser(context.Background(), newUsername, newPassword, role)
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	fmt.Println("=================================================================")
	fmt.Println("User created successfully!")
	fmt.Println("=================================================================")
	fmt.Printf("ID: %d\n", user.ID)
	fmt.Printf("Username: %s\n", user.Username)
	fmt.Printf("Role: %s\n", user.Role)
	fmt.Println("=================================================================")
}

func listUsers() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	repo, closeRepo, err := openRepository(cfg, storePostgres, false)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer closeRepo()

	users, err := repo.ListUsers(context.Background())
	if err != nil {
		log.Fatalf("Failed to list users: %v", err)
	}

	fmt.Println("=================================================================")
	fmt.Printf("Total Users: %d\n", len(users))
	fmt.Println("=================================================================")
	for _, u := range users {
		fmt.Printf("ID: %d\n", u.ID)
		fmt.Printf("Username: %s\n", u.Username)
		fmt.Printf("Role: %s\n", u.Role)
		fmt.Printf("Created: %s\n", u.CreatedAt.Format(time.RFC3339))
		if u.DeviceToken != nil {
			fmt.Println("Push Token: registered")
		} else {
			fmt.Println("Push Token: none")
		}
		fmt.Println("-----------------------------------------------------------------")
	}
}
