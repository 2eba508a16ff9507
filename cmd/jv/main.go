package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"janvaani/internal/app"
	"janvaani/internal/config"
	"janvaani/internal/db"
	"janvaani/internal/domain"
	"janvaani/internal/engine"
	"janvaani/internal/server"
	jvsdk "janvaani/sdk/go"
)

var rootCmd = &cobra.Command{
	Use:   "jv",
	Short: "JanVaani CLI",
	Long: `JanVaani tracks citizen grievances from filing to resolution.
Core concepts:
- Workspace: your .janvaani directory holding the database and the client cache.
- Complaints: grievances with a reference number (JV-<year>-<seq>), a category, and a ward.
- Statuses: Registered -> Acknowledged -> In Progress -> Resolved; Rejected is a terminal exit.
- Timeline: one step per forward status, stamped as the complaint advances.
- Support: other citizens back a complaint once each to raise its visibility.
- Feedback: the owner rates a resolved complaint exactly once.
- Scoring: filing, resolution, and feedback earn civic points; points map to tiers (Bronze to Platinum).
- Leaderboard: citizens ranked by score, optionally per ward.
- Event log: diary of changes, view with 'jv log tail'.

Server commands (serve, status, log) work against the workspace database.
Client commands (auth, complaint, leaderboard, watch) talk to a running
server and keep a durable local snapshot so reads survive restarts.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("JANVAANI")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("server-url", "http://127.0.0.1:8090", "JanVaani server base URL")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("server-url", rootCmd.PersistentFlags().Lookup("server-url"))
}

func registerCommands() {
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(authCmd())
	rootCmd.AddCommand(complaintCmd())
	rootCmd.AddCommand(adminCmd())
	rootCmd.AddCommand(leaderboardCmd())
	rootCmd.AddCommand(watchCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage workspace config"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default janvaani.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSONOrTable(cfg)
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath, adminName, adminEmail, adminPassword string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			e, closeDB, err := app.OpenEngine(workspace)
			if err != nil {
				return err
			}
			defer closeDB()
			if addr == "" {
				addr = e.Config.Server.Addr
			}
			if basePath == "" {
				basePath = e.Config.Server.BasePath
			}
			secret := os.Getenv("JANVAANI_JWT_SECRET")
			if secret == "" {
				secret = e.Config.Auth.JWTSecret
			}
			if secret == "" {
				return fmt.Errorf("a JWT secret is required: set auth.jwt_secret or JANVAANI_JWT_SECRET")
			}
			e.Config.Auth.JWTSecret = secret
			if adminEmail != "" {
				if adminPassword == "" {
					return fmt.Errorf("--admin-password is required with --admin-email")
				}
				created, err := app.SeedAdmin(cmd.Context(), e, adminName, adminEmail, adminPassword)
				if err != nil {
					return err
				}
				if created {
					fmt.Println("seeded admin account", adminEmail)
				}
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: server.AuthConfig{JWTSecret: secret}})
			if err != nil {
				return err
			}
			server.StartWebhookDispatcher(e)
			srv := &http.Server{Addr: addr, Handler: handler}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(shutdownCtx)
			}()
			fmt.Printf("Serving JanVaani API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from config)")
	cmd.Flags().StringVar(&adminName, "admin-name", "", "bootstrap admin display name")
	cmd.Flags().StringVar(&adminEmail, "admin-email", "", "seed an admin account with this email if missing")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "password for the seeded admin account")
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show workspace complaint stats",
		Long:  "Counts straight from the workspace database: totals by status, category, and priority.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				stats, err := e.Repo.ComplaintStats(ctx, time.Now().UTC())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(stats)
				}
				fmt.Printf("Complaints: %d total, %d today, %d this week\n", stats.Total, stats.Today, stats.ThisWeek)
				fmt.Println("By status:")
				for status, n := range stats.ByStatus {
					fmt.Printf("  %s: %d\n", status, n)
				}
				fmt.Println("By category:")
				for category, n := range stats.ByCategory {
					fmt.Printf("  %s: %d\n", category, n)
				}
				return nil
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "The diary of everything that happened: registrations, filings, status changes, support, and feedback.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				latest, err := e.Events.LatestID(ctx)
				if err != nil {
					return err
				}
				cursor := latest - int64(n)
				if cursor < 0 {
					cursor = 0
				}
				events, err := e.Events.After(ctx, n, cursor)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	return cmd
}

func authCmd() *cobra.Command {
	auth := &cobra.Command{Use: "auth", Short: "Sessions against a JanVaani server"}
	auth.AddCommand(authRegisterCmd())
	auth.AddCommand(authLoginCmd())
	auth.AddCommand(authLogoutCmd())
	auth.AddCommand(authWhoamiCmd())
	return auth
}

func authRegisterCmd() *cobra.Command {
	var role, name, email, password, ward string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and start a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *jvsdk.Coordinator) error {
				sess, err := c.Register(ctx, role, name, email, password, ward)
				if err != nil {
					return err
				}
				fmt.Printf("registered %s (%s)\n", sess.User.Name, sess.User.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", domain.RoleCitizen, "account role (citizen or admin)")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	cmd.Flags().StringVar(&ward, "ward", "", "home ward")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func authLoginCmd() *cobra.Command {
	var role, email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and persist the session locally",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *jvsdk.Coordinator) error {
				sess, err := c.Login(ctx, role, email, password)
				if err != nil {
					return err
				}
				fmt.Printf("logged in as %s (%s, %s tier, %d points)\n", sess.User.Name, sess.User.Role, sess.User.Tier, sess.User.Score)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", domain.RoleCitizen, "login surface (citizen or admin)")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func authLogoutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Drop the local session and cached state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *jvsdk.Coordinator) error {
				c.Logout()
				fmt.Println("logged out")
				return nil
			})
		},
	}
	return cmd
}

func authWhoamiCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *jvsdk.Coordinator) error {
				sess := c.Session()
				if sess == nil {
					return fmt.Errorf("not logged in; run jv auth login")
				}
				return printJSONOrTable(sess.User)
			})
		},
	}
	return cmd
}

func complaintCmd() *cobra.Command {
	cpl := &cobra.Command{Use: "complaint", Short: "File and follow complaints"}
	cpl.AddCommand(complaintFileCmd())
	cpl.AddCommand(complaintListCmd())
	cpl.AddCommand(complaintShowCmd())
	cpl.AddCommand(complaintSupportCmd())
	cpl.AddCommand(complaintFeedbackCmd())
	return cpl
}

func complaintFileCmd() *cobra.Command {
	var draft jvsdk.ComplaintDraft
	cmd := &cobra.Command{
		Use:   "file",
		Short: "File a new complaint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *jvsdk.Coordinator) error {
				created, err := c.CreateComplaint(ctx, draft)
				if err != nil {
					return err
				}
				fmt.Printf("filed %s (%s)\n", created.RefID, created.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&draft.Title, "title", "", "complaint title")
	cmd.Flags().StringVar(&draft.Description, "description", "", "what happened")
	cmd.Flags().StringVar(&draft.Category, "category", "", "complaint category")
	cmd.Flags().StringVar(&draft.Priority, "priority", "", "priority (Low, Medium, High)")
	cmd.Flags().StringVar(&draft.Ward, "ward", "", "ward")
	cmd.Flags().Float64Var(&draft.Latitude, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&draft.Longitude, "lon", 0, "longitude")
	cmd.Flags().StringVar(&draft.PhotoURL, "photo", "", "photo URL")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func complaintListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List complaints visible to the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *jvsdk.Coordinator) error {
				if err := c.RefreshComplaints(ctx); err != nil {
					return err
				}
				items := c.Complaints()
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Ref", "Title", "Category", "Status", "Support", "Ward"})
				for _, item := range items {
					tw.AppendRow(table.Row{item.RefID, item.Title, item.Category, item.Status, item.SupportCount, item.Ward})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func complaintShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id-or-ref>",
		Short: "Show one complaint with its timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *jvsdk.Coordinator) error {
				item, err := c.GetComplaint(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(item)
				}
				fmt.Printf("%s  %s [%s]\n", item.RefID, item.Title, item.Status)
				if item.Description != "" {
					fmt.Println(item.Description)
				}
				fmt.Printf("Category: %s  Priority: %s  Support: %d\n", item.Category, item.Priority, item.SupportCount)
				for _, step := range item.Timeline {
					mark := " "
					if step.Done {
						mark = "x"
					}
					when := ""
					if step.Date != nil {
						when = " (" + *step.Date + ")"
					}
					fmt.Printf("  [%s] %s%s\n", mark, step.Name, when)
				}
				if item.Feedback != nil {
					fmt.Printf("Feedback: %d/5 resolved=%s %s\n", item.Feedback.Rating, item.Feedback.Resolved, item.Feedback.Comment)
				}
				return nil
			})
		},
	}
	return cmd
}

func complaintSupportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "support <id-or-ref>",
		Short: "Back a complaint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *jvsdk.Coordinator) error {
				item, err := c.Support(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("%s now has %d supporters\n", item.RefID, item.SupportCount)
				return nil
			})
		},
	}
	return cmd
}

func complaintFeedbackCmd() *cobra.Command {
	var draft jvsdk.FeedbackDraft
	cmd := &cobra.Command{
		Use:   "feedback <id-or-ref>",
		Short: "Rate a resolved complaint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *jvsdk.Coordinator) error {
				item, err := c.SubmitFeedback(ctx, args[0], draft)
				if err != nil {
					return err
				}
				fmt.Printf("feedback recorded for %s\n", item.RefID)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&draft.Rating, "rating", 0, "rating 1-5")
	cmd.Flags().StringVar(&draft.Comment, "comment", "", "optional comment")
	cmd.Flags().StringVar(&draft.Resolved, "resolved", "yes", "was it resolved (yes, no, partial)")
	_ = cmd.MarkFlagRequired("rating")
	return cmd
}

func adminCmd() *cobra.Command {
	adm := &cobra.Command{Use: "admin", Short: "Admin operations against a JanVaani server"}
	adm.AddCommand(adminStatusCmd())
	adm.AddCommand(adminResolveCmd())
	adm.AddCommand(adminDeleteCmd())
	adm.AddCommand(adminStatsCmd())
	adm.AddCommand(adminUsersCmd())
	return adm
}

func adminStatusCmd() *cobra.Command {
	var update jvsdk.StatusUpdate
	cmd := &cobra.Command{
		Use:   "status <id-or-ref>",
		Short: "Advance a complaint's status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *jvsdk.Coordinator) error {
				item, err := c.UpdateStatus(ctx, args[0], update)
				if err != nil {
					return err
				}
				fmt.Printf("%s is now %s\n", item.RefID, item.Status)
				return nil
			})
		},
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&update.Status, "to", "", "target status")
	cmd.Flags().StringVar(&update.AdminNote, "note", "", "admin note")
	cmd.Flags().StringVar(&update.AssignedOfficer, "officer", "", "assigned officer")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func adminResolveCmd() *cobra.Command {
	var res jvsdk.Resolution
	cmd := &cobra.Command{
		Use:   "resolve <id-or-ref>",
		Short: "Resolve a complaint with proof photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *jvsdk.Coordinator) error {
				item, err := c.Resolve(ctx, args[0], res)
				if err != nil {
					return err
				}
				fmt.Printf("%s resolved\n", item.RefID)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&res.ResolvePhotoURL, "photo", "", "resolution photo URL")
	cmd.Flags().StringVar(&res.AdminNote, "note", "", "admin note")
	cmd.Flags().StringVar(&res.AssignedOfficer, "officer", "", "assigned officer")
	_ = cmd.MarkFlagRequired("photo")
	return cmd
}

func adminDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id-or-ref>",
		Short: "Delete a complaint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *jvsdk.Coordinator) error {
				if err := c.Delete(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
	return cmd
}

func adminStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show server-wide complaint stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *jvsdk.Coordinator) error {
				stats, err := c.ComplaintStats(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(stats)
			})
		},
	}
	return cmd
}

func adminUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List citizen accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *jvsdk.Coordinator) error {
				users, err := c.RefreshRoster(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Name", "Email", "Ward", "Score", "Tier", "Filed"})
				for _, u := range users {
					tw.AppendRow(table.Row{u.Name, u.Email, u.Ward, u.Score, u.Tier, u.ComplaintsFiled})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func leaderboardCmd() *cobra.Command {
	var ward string
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show civic score rankings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *jvsdk.Coordinator) error {
				users, err := c.RefreshLeaderboard(ctx, ward)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(users)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "Name", "Ward", "Score", "Tier"})
				for i, u := range users {
					tw.AppendRow(table.Row{i + 1, u.Name, u.Ward, u.Score, u.Tier})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&ward, "ward", "", "limit to one ward")
	return cmd
}

func watchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the server and print complaint changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(cmd.Context(), func(ctx context.Context, c *jvsdk.Coordinator) error {
				if c.Session() == nil {
					return fmt.Errorf("not logged in; run jv auth login")
				}
				ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
				defer stop()
				seen := map[string]string{}
				report := func() {
					for _, item := range c.Complaints() {
						prev, ok := seen[item.ID]
						if !ok {
							fmt.Printf("%s  %s [%s]\n", item.RefID, item.Title, item.Status)
						} else if prev != item.Status {
							fmt.Printf("%s  %s -> %s\n", item.RefID, prev, item.Status)
						}
						seen[item.ID] = item.Status
					}
				}
				if err := c.RefreshComplaints(ctx); err != nil {
					return err
				}
				report()
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return nil
					case <-ticker.C:
						if err := c.RefreshComplaints(ctx); err != nil {
							if jvsdk.IsAuthError(err) {
								return err
							}
							continue
						}
						report()
					}
				}
			})
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 25*time.Second, "poll interval")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	e, closeDB, err := app.OpenEngine(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer closeDB()
	return fn(ctx, e)
}

func withClient(ctx context.Context, fn func(context.Context, *jvsdk.Coordinator) error) error {
	store, err := jvsdk.OpenStore(db.CachePath(viper.GetString("workspace")))
	if err != nil {
		return err
	}
	c := jvsdk.NewCoordinator(jvsdk.Options{BaseURL: viper.GetString("server-url"), Store: store})
	defer c.Close()
	c.RestoreSession(ctx)
	return fn(ctx, c)
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
