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

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"jobline/internal/app"
	"jobline/internal/domain"
	"jobline/internal/engine"
	"jobline/internal/engine/auth"
	"jobline/internal/magiclink"
	"jobline/internal/repo"
	"jobline/internal/report"
	"jobline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "jl",
	Short: "Jobline CLI",
	Long: `Jobline runs the lifecycle of home maintenance jobs between property owners and professionals.
- Property: a home registered by its owner; jobs and reports hang off it.
- Job: recommended -> sent -> (quoted ->) accepted -> in_progress -> completed. A professional can take a sent job as a lead, or quote a price for the owner to accept.
- Checklist: instantiated when work begins; required items gate completion.
- Magic links: read-only, 30 day links to a job or a property report.
- Event log: every transition is recorded, view with 'jl log tail'.
Commands act as --actor-id with --role (JOBLINE_ACTOR_ID, JOBLINE_ROLE).`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("JOBLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("role", "owner", "actor role (owner, professional, admin)")
	for _, name := range []string{"workspace", "json", "actor-id", "role"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(propertyCmd())
	rootCmd.AddCommand(jobCmd())
	rootCmd.AddCommand(checklistCmd())
	rootCmd.AddCommand(linkCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(apiKeyCmd())
	rootCmd.AddCommand(configCmd())
}

func initCmd() *cobra.Command {
	var linkHost string
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create jobline.yml and the workspace database",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := app.Init(cmd.Context(), viper.GetString("workspace"), linkHost, force)
			if err != nil {
				return err
			}
			fmt.Printf("Initialized workspace, config at %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&linkHost, "link-host", "", "public host magic links point at")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var devLogin bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server and webhook dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			jwtSecret := viper.GetString("jwt-secret")
			if jwtSecret == "" {
				return fmt.Errorf("JOBLINE_JWT_SECRET is required for bearer auth")
			}
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				if addr == "" {
					addr = rt.Config.Server.Addr
				}
				if basePath == "" {
					basePath = rt.Config.Server.BasePath
				}
				handler, err := server.New(server.Config{
					Engine:              rt.Engine,
					BasePath:            basePath,
					Auth:                server.AuthConfig{JWTSecret: jwtSecret, DevLogin: devLogin},
					AccessRatePerMinute: rt.Config.Server.AccessRatePerMinute,
					Logger:              rt.Logger.Named("http"),
				})
				if err != nil {
					return err
				}
				server.StartWebhooks(ctx, rt.Engine, rt.Config.Webhooks, rt.Logger)

				srv := &http.Server{Addr: addr, Handler: handler}
				go func() {
					<-ctx.Done()
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
				rt.Logger.Info("serving jobline api",
					zap.String("addr", addr),
					zap.String("base_path", basePath),
					zap.Bool("dev_login", devLogin))
				fmt.Printf("Serving Jobline API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from config)")
	cmd.Flags().BoolVar(&devLogin, "dev-login", false, "expose POST /auth/dev/login (local development only)")
	return cmd
}

func propertyCmd() *cobra.Command {
	p := &cobra.Command{Use: "property", Short: "Manage properties"}

	var opts engine.PropertyOptions
	var value float64
	var year int
	create := &cobra.Command{
		Use:   "create",
		Short: "Register a property",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("value") {
				opts.EstimatedValue = &value
			}
			if cmd.Flags().Changed("year-built") {
				opts.YearBuilt = &year
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				prop, err := e.CreateProperty(ctx, currentActor(), opts)
				if err != nil {
					return err
				}
				return printJSON(prop)
			})
		},
	}
	create.Flags().StringVar(&opts.Address, "address", "", "street address")
	create.Flags().StringVar(&opts.RegistryID, "registry-id", "", "land registry identifier")
	create.Flags().StringVar(&opts.Type, "type", "", "property type")
	create.Flags().StringVar(&opts.EnergyGrade, "energy-grade", "", "energy grade")
	create.Flags().Float64Var(&value, "value", 0, "estimated market value")
	create.Flags().IntVar(&year, "year-built", 0, "construction year")
	_ = create.MarkFlagRequired("address")

	list := &cobra.Command{
		Use:   "list",
		Short: "List visible properties",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListProperties(ctx, currentActor())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable("ID", "Address", "Owner", "Value")
				for _, it := range items {
					tw.AppendRow(table.Row{it.ID, it.Address, it.OwnerID, formatMoney(it.EstimatedValue)})
				}
				tw.Render()
				return nil
			})
		},
	}

	show := &cobra.Command{
		Use:   "show <property-id>",
		Short: "Show a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				prop, err := e.GetProperty(ctx, currentActor(), args[0])
				if err != nil {
					return err
				}
				return printJSON(prop)
			})
		},
	}

	p.AddCommand(create, list, show)
	return p
}

func jobCmd() *cobra.Command {
	job := &cobra.Command{
		Use:   "job",
		Short: "Manage jobs",
		Long:  "Jobs move recommended -> sent -> (quoted ->) accepted -> in_progress -> completed.",
	}
	job.AddCommand(jobRecommendCmd())
	job.AddCommand(jobListCmd())
	job.AddCommand(jobShowCmd())
	job.AddCommand(jobQuoteCmd())
	job.AddCommand(jobCompareCmd())
	job.AddCommand(jobCompleteCmd())
	job.AddCommand(jobMaterialsCmd())
	for _, t := range []struct {
		use, short string
		fn         func(engine.Engine) func(context.Context, auth.Actor, string) (domain.Job, error)
	}{
		{"send", "Send a recommended job to professionals", func(e engine.Engine) func(context.Context, auth.Actor, string) (domain.Job, error) { return e.Send }},
		{"reject-quote", "Reject the current quote", func(e engine.Engine) func(context.Context, auth.Actor, string) (domain.Job, error) { return e.RejectQuote }},
		{"accept", "Accept a lead (professional) or a quote (owner)", func(e engine.Engine) func(context.Context, auth.Actor, string) (domain.Job, error) { return e.Accept }},
		{"begin", "Start work and instantiate the checklist", func(e engine.Engine) func(context.Context, auth.Actor, string) (domain.Job, error) { return e.Begin }},
	} {
		job.AddCommand(transitionCmd(t.use, t.short, t.fn))
	}
	return job
}

func transitionCmd(use, short string, pick func(engine.Engine) func(context.Context, auth.Actor, string) (domain.Job, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <job-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				j, err := pick(e)(ctx, currentActor(), args[0])
				if err != nil {
					return err
				}
				return printJobSummary(j)
			})
		},
	}
}

func jobRecommendCmd() *cobra.Command {
	var opts engine.RecommendOptions
	var risk, effect, driver, initiator string
	var images []string
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Create a recommended job for a property",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.RiskLevel = domain.RiskLevel(risk)
			opts.ValueEffect = domain.ValueEffect(effect)
			opts.Driver = domain.Driver(driver)
			opts.Initiator = domain.Initiator(initiator)
			opts.BeforeImages = images
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				j, err := e.Recommend(ctx, currentActor(), opts)
				if err != nil {
					return err
				}
				return printJobSummary(j)
			})
		},
	}
	cmd.Flags().StringVar(&opts.PropertyID, "property", "", "property id")
	cmd.Flags().StringVar(&opts.Title, "title", "", "job title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().StringVar(&risk, "risk", "", "risk level (low, moderate, critical)")
	cmd.Flags().IntVar(&opts.TechnicalGrade, "grade", 0, "technical grade 0-3")
	cmd.Flags().StringVar(&effect, "value-effect", "", "protect or increase")
	cmd.Flags().StringVar(&driver, "driver", "", "maintenance or value")
	cmd.Flags().Float64Var(&opts.CostEstimate, "estimate", 0, "cost estimate")
	cmd.Flags().StringVar(&opts.Horizon, "horizon", "", "planning horizon")
	cmd.Flags().StringVar(&initiator, "initiator", "", "customer, professional or system")
	cmd.Flags().StringArrayVar(&images, "before-image", nil, "before image reference (repeatable)")
	_ = cmd.MarkFlagRequired("property")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func jobListCmd() *cobra.Command {
	var q engine.JobQuery
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs visible to the actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Status = domain.Status(status)
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				jobs, err := e.VisibleJobs(ctx, currentActor(), q)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(jobs)
				}
				tw := newTable("ID", "Title", "Status", "Risk", "Professional", "Estimate", "Quote")
				for _, j := range jobs {
					tw.AppendRow(table.Row{j.ID, j.Title, j.Status, j.RiskLevel, deref(j.ProfessionalID), j.CostEstimate, formatMoney(j.QuotedPrice)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&q.PropertyID, "property", "", "property filter")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "max jobs")
	return cmd
}

func jobShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				j, err := e.GetJob(ctx, currentActor(), args[0])
				if err != nil {
					return err
				}
				return printJSON(j)
			})
		},
	}
}

func jobQuoteCmd() *cobra.Command {
	var price float64
	cmd := &cobra.Command{
		Use:   "quote <job-id>",
		Short: "Quote a price for a sent job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				j, err := e.Quote(ctx, currentActor(), args[0], price)
				if err != nil {
					return err
				}
				return printJobSummary(j)
			})
		},
	}
	cmd.Flags().Float64Var(&price, "price", 0, "quoted price")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func jobCompareCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compare <job-id>",
		Short: "Compare the quoted price with the estimate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				cmp, err := e.QuoteComparison(ctx, currentActor(), args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmp)
				}
				fmt.Printf("estimate %.0f, quote %.0f: %s\n", cmp.Estimate, cmp.Price, cmp.Label)
				return nil
			})
		},
	}
}

func jobCompleteCmd() *cobra.Command {
	var images []string
	cmd := &cobra.Command{
		Use:   "complete <job-id>",
		Short: "Complete a job once required checklist items are checked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				j, err := e.Complete(ctx, currentActor(), args[0], images...)
				if err != nil {
					return err
				}
				return printJobSummary(j)
			})
		},
	}
	cmd.Flags().StringArrayVar(&images, "after-image", nil, "after image reference (repeatable)")
	return cmd
}

func jobMaterialsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "materials <job-id>",
		Short: "Suggest materials for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.SuggestMaterials(ctx, currentActor(), args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				if len(items) == 0 {
					fmt.Println("no suggestions")
					return nil
				}
				tw := newTable("Name", "Quantity", "Catalog ID")
				for _, m := range items {
					tw.AppendRow(table.Row{m.Name, m.Quantity, m.CatalogID})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func checklistCmd() *cobra.Command {
	cl := &cobra.Command{Use: "checklist", Short: "Work checklists"}
	show := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a job's checklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				view, err := e.Checklist(ctx, currentActor(), args[0])
				if err != nil {
					return err
				}
				return printChecklist(view)
			})
		},
	}
	toggle := &cobra.Command{
		Use:   "toggle <job-id> <item-id>",
		Short: "Toggle a checklist item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				view, err := e.ToggleChecklistItem(ctx, currentActor(), args[0], args[1])
				if err != nil {
					return err
				}
				return printChecklist(view)
			})
		},
	}
	cl.AddCommand(show, toggle)
	return cl
}

func linkCmd() *cobra.Command {
	l := &cobra.Command{
		Use:   "link",
		Short: "Read-only magic links",
		Long:  "Magic links need JOBLINE_LINK_SECRET. They grant read access for 30 days.",
	}
	var jobID, propertyID string
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Issue a magic link for a job or a property",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, id := magiclink.KindJob, jobID
			switch {
			case jobID != "" && propertyID != "":
				return fmt.Errorf("--job and --property are exclusive")
			case propertyID != "":
				kind, id = magiclink.KindProperty, propertyID
			case jobID == "":
				return fmt.Errorf("--job or --property required")
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				tok, err := e.IssueAccessLink(ctx, currentActor(), kind, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(tok)
				}
				fmt.Printf("%s\nexpires %s\n", tok.URL, tok.ExpiresAt.Format(time.RFC3339))
				return nil
			})
		},
	}
	issue.Flags().StringVar(&jobID, "job", "", "job id")
	issue.Flags().StringVar(&propertyID, "property", "", "property id")

	open := &cobra.Command{
		Use:   "open <token>",
		Short: "Resolve a magic link as an anonymous viewer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				view, err := e.ResolveAccessLink(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(view)
			})
		},
	}
	l.AddCommand(issue, open)
	return l
}

func reportCmd() *cobra.Command {
	r := &cobra.Command{Use: "report", Short: "Property reports"}
	show := &cobra.Command{
		Use:   "show <property-id>",
		Short: "Summarize completed work on a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rep, err := e.PropertyReport(ctx, currentActor(), args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rep)
				}
				fmt.Printf("%d completed, %d critical fixed, value created %.0f\n%s\n",
					rep.Stats.CompletedCount, rep.Stats.CriticalFixedCount, rep.Stats.ValueCreated, rep.Narrative.Text)
				return nil
			})
		},
	}
	var kind string
	export := &cobra.Command{
		Use:   "export <property-id>",
		Short: "Build a bank or insurance export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				out, err := e.ExportReport(ctx, currentActor(), args[0], report.ExportKind(kind))
				if err != nil {
					return err
				}
				return printJSON(out)
			})
		},
	}
	export.Flags().StringVar(&kind, "kind", string(report.ExportBank), "bank or insurance")
	r.AddCommand(show, export)
	return r
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "Everything that happened: properties, transitions, checklist toggles, links and exports.",
	}
	var f repo.EventFilter
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				events, err := e.ListEvents(ctx, currentActor(), f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(events)
				}
				tw := newTable("ID", "TS", "Type", "Entity", "Actor")
				for _, evt := range events {
					tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.EntityKind + ":" + evt.EntityID, evt.ActorID})
				}
				tw.Render()
				return nil
			})
		},
	}
	tail.Flags().IntVar(&f.Limit, "n", 20, "number of events")
	tail.Flags().StringVar(&f.Type, "type", "", "event type filter")
	tail.Flags().StringVar(&f.EntityKind, "entity-kind", "", "entity kind (job, property)")
	tail.Flags().StringVar(&f.EntityID, "entity-id", "", "entity id")
	log.AddCommand(tail)
	return log
}

func tokenCmd() *cobra.Command {
	t := &cobra.Command{Use: "token", Short: "API bearer tokens"}
	var actorID, role string
	var ttl time.Duration
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Mint a bearer token signed with JOBLINE_JWT_SECRET",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := auth.ParseRole(role)
			if r == auth.RoleNone {
				return fmt.Errorf("role must be owner, professional or admin")
			}
			token, err := server.SignToken(viper.GetString("jwt-secret"), actorID, r, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	issue.Flags().StringVar(&actorID, "actor", "", "actor id")
	issue.Flags().StringVar(&role, "role", "owner", "owner, professional or admin")
	issue.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "token lifetime")
	_ = issue.MarkFlagRequired("actor")
	t.AddCommand(issue)
	return t
}

func apiKeyCmd() *cobra.Command {
	k := &cobra.Command{Use: "apikey", Short: "Manage API keys"}

	var actorID, role, name string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an API key; the key is printed once",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := auth.ParseRole(role)
			if r == auth.RoleNone {
				return fmt.Errorf("role must be owner, professional or admin")
			}
			key := "jl_" + strings.ReplaceAll(uuid.NewString(), "-", "")
			rec := domain.APIKey{
				ID:        uuid.NewString(),
				ActorID:   actorID,
				Role:      string(r),
				Name:      name,
				KeyHash:   repo.HashAPIKey(key),
				CreatedAt: time.Now().UTC().Format(time.RFC3339),
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.Repo.InsertAPIKey(ctx, nil, rec); err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]string{"id": rec.ID, "key": key})
				}
				fmt.Printf("id:  %s\nkey: %s\n", rec.ID, key)
				return nil
			})
		},
	}
	create.Flags().StringVar(&actorID, "actor", "", "actor id the key acts as")
	create.Flags().StringVar(&role, "role", "owner", "owner, professional or admin")
	create.Flags().StringVar(&name, "name", "", "label")
	_ = create.MarkFlagRequired("actor")

	var listActor string
	list := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				keys, err := e.Repo.ListAPIKeys(ctx, listActor)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(keys)
				}
				tw := newTable("ID", "Actor", "Role", "Name", "Created")
				for _, key := range keys {
					tw.AppendRow(table.Row{key.ID, key.ActorID, key.Role, key.Name, key.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
	list.Flags().StringVar(&listActor, "actor", "", "actor filter")

	del := &cobra.Command{
		Use:   "delete <key-id>",
		Short: "Delete an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Repo.DeleteAPIKey(ctx, args[0])
			})
		},
	}
	k.AddCommand(create, list, del)
	return k
}

func configCmd() *cobra.Command {
	c := &cobra.Command{Use: "config", Short: "Workspace configuration"}
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the loaded configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd.Context(), func(ctx context.Context, rt *app.Runtime) error {
				return printJSON(rt.Config)
			})
		},
	}
	c.AddCommand(show)
	return c
}

// --- helpers ---

func currentActor() auth.Actor {
	return auth.Actor{ID: viper.GetString("actor-id"), Role: auth.ParseRole(viper.GetString("role"))}
}

func withRuntime(ctx context.Context, fn func(context.Context, *app.Runtime) error) error {
	rt, err := app.Open(ctx, app.Options{
		Workspace:  viper.GetString("workspace"),
		LinkSecret: viper.GetString("link-secret"),
	})
	if err != nil {
		return err
	}
	defer rt.Close()
	return fn(ctx, rt)
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	return withRuntime(ctx, func(ctx context.Context, rt *app.Runtime) error {
		return fn(ctx, rt.Engine)
	})
}

func newTable(headers ...any) table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row(headers))
	return tw
}

func printJobSummary(j domain.Job) error {
	if viper.GetBool("json") {
		return printJSON(j)
	}
	fmt.Printf("%s  %s  [%s]\n", j.ID, j.Title, j.Status)
	return nil
}

func printChecklist(view engine.ChecklistView) error {
	if viper.GetBool("json") {
		return printJSON(view)
	}
	tw := newTable("ID", "Phase", "Label", "Required", "Checked")
	for _, it := range view.Items {
		mark := ""
		if it.Checked {
			mark = "x"
		}
		tw.AppendRow(table.Row{it.ID, it.Phase, it.Label, it.Required, mark})
	}
	tw.AppendFooter(table.Row{"", "", "progress", fmt.Sprintf("%d%%", view.Progress), ""})
	tw.Render()
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatMoney(v *float64) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%.0f", *v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
