package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"llmontreal/internal/app"
	"llmontreal/internal/bootstrap"
	"llmontreal/internal/pkg/jwtutil"
)

func loginCmd(ctx context.Context, a *bootstrap.App, args []string, cio cmdIO) error {
	flags := flag.NewFlagSet("login", flag.ContinueOnError)
	username := flags.String("u", "", "username")
	password := flags.String("p", "", "password (read from stdin when empty)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		pw, err := promptLine(cio, "Password: ")
		if err != nil {
			return err
		}
		*password = pw
	}

	user, err := a.Auth.Login(ctx, app.LoginInput{Username: *username, Password: *password})
	if err != nil {
		return err
	}
	fmt.Fprintf(cio.out, "Signed in as %s <%s>\n", user.Name, user.Email)
	return nil
}

func registerCmd(ctx context.Context, a *bootstrap.App, args []string, cio cmdIO) error {
	flags := flag.NewFlagSet("register", flag.ContinueOnError)
	username := flags.String("u", "", "username")
	email := flags.String("e", "", "email")
	password := flags.String("p", "", "password (read from stdin when empty)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *password == "" {
		pw, err := promptLine(cio, "Password: ")
		if err != nil {
			return err
		}
		*password = pw
	}

	user, err := a.Auth.Register(ctx, app.RegisterInput{Username: *username, Email: *email, Password: *password})
	if err != nil {
		return err
	}
	fmt.Fprintf(cio.out, "Account created, signed in as %s\n", user.Name)
	return nil
}

func logoutCmd(ctx context.Context, a *bootstrap.App, _ []string, cio cmdIO) error {
	if err := a.Auth.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cio.out, "Signed out")
	return nil
}

func whoamiCmd(ctx context.Context, a *bootstrap.App, _ []string, cio cmdIO) error {
	user := a.Auth.CurrentUser()
	if user == nil {
		fmt.Fprintln(cio.out, "Not signed in")
		return nil
	}
	fmt.Fprintf(cio.out, "%s <%s> (id %s)\n", user.Name, user.Email, user.ID)

	token, err := a.Auth.Token(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cio.out, describeToken(token, time.Now()))
	return nil
}

func describeToken(token string, now time.Time) string {
	if token == "" {
		return "No bearer token stored"
	}
	claims, err := jwtutil.Inspect(token)
	if errors.Is(err, jwtutil.ErrNotJWT) {
		return "Opaque bearer token stored"
	}
	if err != nil {
		return fmt.Sprintf("Unreadable token: %v", err)
	}
	switch {
	case claims.ExpiresAt.IsZero():
		return fmt.Sprintf("Token for %q, no expiry", claims.Subject)
	case claims.Expired(now):
		return fmt.Sprintf("Token for %q expired %s, sign in again", claims.Subject, humanize.RelTime(claims.ExpiresAt, now, "ago", "from now"))
	default:
		return fmt.Sprintf("Token for %q expires %s", claims.Subject, humanize.RelTime(claims.ExpiresAt, now, "ago", "from now"))
	}
}

func promptLine(cio cmdIO, prompt string) (string, error) {
	fmt.Fprint(cio.out, prompt)
	scanner := bufio.NewScanner(cio.in)
	if scanner.Scan() {
		return strings.TrimRight(scanner.Text(), "\r"), nil
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read input failed: %w", err)
	}
	return "", nil
}
