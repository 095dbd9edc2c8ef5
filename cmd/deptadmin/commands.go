package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-dept-admin/authapi/fakebackend"
	apperrors "github.com/jrsteele09/go-dept-admin/internal/errors"
	"github.com/jrsteele09/go-dept-admin/internal/metrics"
	"github.com/jrsteele09/go-dept-admin/internal/utils"
	"github.com/jrsteele09/go-dept-admin/server"
	"github.com/jrsteele09/go-dept-admin/session"
)

const shutdownTimeout = 5 * time.Second

func runServe(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	displayAppname(ctx, ctx.Config.GetAppName())

	m := metrics.New()
	a, err := newApp(ctx.Config, ctx.Logger, session.WithObserver(m.SessionObserver()))
	if err != nil {
		return err
	}
	defer a.Close()

	srv, err := server.New(ctx.Config, a.store, a.auth, a.api, server.WithMetrics(m), server.WithLogger(ctx.Logger))
	if err != nil {
		return err
	}
	srv.Start(ctx.Ctx)

	httpServer := &http.Server{
		Addr:              ctx.Config.GetPort(),
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return listenAndServe(ctx, httpServer)
}

func listenAndServe(ctx *commandContext, httpServer *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		ctx.Logger.Info().Str("addr", httpServer.Addr).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server.ListenAndServe %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	ctx.Logger.Info().Msg("Server stopped")
	return nil
}

func runLogin(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", "", "account password (read from stdin when omitted)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		return errors.New("-email is required")
	}
	if *password == "" {
		fmt.Fprint(ctx.Stdout, "Password: ")
		line, err := bufio.NewReader(ctx.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		*password = strings.TrimRight(line, "\r\n")
	}

	a, err := newApp(ctx.Config, ctx.Logger)
	if err != nil {
		return err
	}
	defer a.Close()

	a.store.Initialize(ctx.Ctx)
	if err := a.store.SetPendingEmail(ctx.Ctx, *email); err != nil {
		ctx.Logger.Warn().Err(err).Msg("Failed to record pending login email")
	}

	sess, err := a.auth.Login(ctx.Ctx, *email, *password)
	if err != nil {
		return err
	}
	if err := a.store.Login(ctx.Ctx, sess); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout, "Logged in as %s (%s)\n", sess.Username(), sess.Role)
	return nil
}

func runLogout(ctx *commandContext, _ []string) error {
	a, err := newApp(ctx.Config, ctx.Logger)
	if err != nil {
		return err
	}
	defer a.Close()

	a.store.Initialize(ctx.Ctx)
	if err := a.store.Logout(ctx.Ctx); err != nil {
		return err
	}
	fmt.Fprintln(ctx.Stdout, "Logged out")
	return nil
}

func runWhoami(ctx *commandContext, _ []string) error {
	a, err := newApp(ctx.Config, ctx.Logger)
	if err != nil {
		return err
	}
	defer a.Close()

	current := a.store.Initialize(ctx.Ctx)
	if current == nil {
		return apperrors.ErrNoSession
	}

	tw := tabwriter.NewWriter(ctx.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "user\t%s\n", current.Username())
	fmt.Fprintf(tw, "email\t%s\n", current.Email)
	fmt.Fprintf(tw, "role\t%s\n", current.Role)
	fmt.Fprintf(tw, "tenant\t%s\n", current.TenantID)
	fmt.Fprintf(tw, "university\t%s\n", current.UniversityID)
	if current.FacultyID != nil {
		fmt.Fprintf(tw, "faculty\t%s\n", utils.Value(current.FacultyID))
	}
	if current.HasDepartmentScope() {
		fmt.Fprintf(tw, "department\t%s\n", utils.Value(current.DepartmentID))
	}
	if claims, err := current.Claims(); err == nil && !claims.ExpiresAt.IsZero() {
		state := "valid"
		if claims.Expired(time.Now()) {
			state = "expired"
		}
		fmt.Fprintf(tw, "expires\t%s (%s)\n", claims.ExpiresAt.Format(time.RFC3339), state)
	}
	return tw.Flush()
}

func runGet(ctx *commandContext, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: deptadmin get <resource>")
	}
	resource := strings.Trim(args[0], "/")

	a, err := newApp(ctx.Config, ctx.Logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.store.Initialize(ctx.Ctx) == nil {
		return fmt.Errorf("%w: run deptadmin login first", apperrors.ErrNoSession)
	}

	var payload any
	if err := a.api.GetJSON(ctx.Ctx, "/api/"+resource, &payload); err != nil {
		if apperrors.Is(err, apperrors.ErrUnauthorized) {
			return fmt.Errorf("session expired, log in again: %w", err)
		}
		return err
	}

	enc := json.NewEncoder(ctx.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func runFakeBackend(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("fake-backend", flag.ContinueOnError)
	addr := fs.String("addr", ":9090", "listen address")
	secret := fs.String("secret", "", "token signing secret (random when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *secret == "" {
		*secret = uuid.NewString()
	}

	backend := fakebackend.New(*secret)
	accounts, err := fakebackend.SeedDemo(backend)
	if err != nil {
		return err
	}
	for _, acc := range accounts {
		ctx.Logger.Info().Str("email", acc.Email).Str("role", string(acc.Role)).Str("password", fakebackend.DemoPassword).Msg("Demo account")
	}

	return listenAndServe(ctx, &http.Server{
		Addr:              *addr,
		Handler:           backend,
		ReadHeaderTimeout: 10 * time.Second,
	})
}

func displayAppname(ctx *commandContext, appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	fmt.Fprintln(ctx.Stdout, myFigure.String())
}
