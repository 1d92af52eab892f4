// Command goenroll-admin creates the initial admin account. Running it again
// leaves an existing account untouched.
package main

import (
	"context"
	"log"

	goEnroll "github.com/MrEthical07/goEnroll"
	"github.com/MrEthical07/goEnroll/internal/bootstrap"
	"github.com/MrEthical07/goEnroll/internal/config"
)

func main() {
	if _, err := config.LoadDotEnv(); err != nil {
		log.Fatal(err)
	}

	var (
		server config.Server
		admin  config.Admin
	)
	if err := config.ParseEnv(&server); err != nil {
		log.Fatal(err)
	}
	if err := config.ParseEnv(&admin); err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	deps, err := bootstrap.Open(ctx, server, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer deps.Close()

	user, created, err := deps.Engine.EnsureAdmin(ctx, goEnroll.RegisterRequest{
		FirstName:   admin.FirstName,
		LastName:    admin.LastName,
		Email:       admin.Email,
		Password:    admin.Password,
		DateOfBirth: admin.DateOfBirth,
		PhoneNumber: admin.PhoneNumber,
	})
	if err != nil {
		deps.Close()
		log.Fatalf("goenroll-admin: %v", err)
	}
	if created {
		log.Printf("goenroll-admin: created admin %s (id %d)", user.Email, user.ID)
		return
	}
	log.Printf("goenroll-admin: %s already exists (id %d, role %s)", user.Email, user.ID, user.Role)
}
