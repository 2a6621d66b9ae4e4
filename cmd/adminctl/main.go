// Command adminctl provisions an admin account directly against the
// credential store, applying the same rules as the admin signup route.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/term"

	"auth-service/internal/app"
	"auth-service/internal/config"
	"auth-service/internal/event"
	"auth-service/internal/logger"
	"auth-service/internal/model"
	"auth-service/internal/validation"
)

func main() {
	slog.SetDefault(logger.New(os.Stderr, "pretty", slog.LevelWarn))

	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "adminctl:", err)
		os.Exit(1)
	}
}

func run(args []string, stdin *os.File, stdout io.Writer) error {
	flags := flag.NewFlagSet("adminctl", flag.ContinueOnError)
	name := flags.String("name", "", "display name of the admin")
	email := flags.String("email", "", "login email of the admin")
	timeout := flags.Duration("timeout", 30*time.Second, "overall time limit")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	password, err := readPassword(stdin, stdout)
	if err != nil {
		return err
	}

	req := model.AdminSignupRequest{
		Name:        strings.TrimSpace(*name),
		Email:       *email,
		Password:    password,
		AdminSecret: cfg.AdminSecret,
	}
	if err := validation.New().Struct(&req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	db, err := app.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	authService, _, err := app.NewAuthService(cfg, db, event.Discard{})
	if err != nil {
		return err
	}

	result, err := authService.SignupAdmin(ctx, req)
	if errors.Is(err, model.ErrEmailExists) {
		return fmt.Errorf("an account with email %s already exists", req.Email)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "admin created: id=%s email=%s\n", result.User.ID, result.User.Email)
	return nil
}

// readPassword prompts without echo on a terminal and falls back to one line
// of stdin so the command can be scripted.
func readPassword(stdin *os.File, stdout io.Writer) (string, error) {
	fd := int(stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(stdout, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(stdout)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	fmt.Fprint(stdout, "Confirm password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(stdout)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	return string(first), nil
}
