package cmd

import (
	"context"
	"os"
	"time"

	"github.com/ak-softwares/wa-api-sub000/core/config"
	"github.com/ak-softwares/wa-api-sub000/core/database"
	"github.com/ak-softwares/wa-api-sub000/domains/account"
	domainAI "github.com/ak-softwares/wa-api-sub000/domains/ai"
	domainInbound "github.com/ak-softwares/wa-api-sub000/domains/inbound"
	domainSend "github.com/ak-softwares/wa-api-sub000/domains/send"
	"github.com/ak-softwares/wa-api-sub000/infrastructure/agenthook"
	"github.com/ak-softwares/wa-api-sub000/infrastructure/meta"
	"github.com/ak-softwares/wa-api-sub000/infrastructure/valkey"
	"github.com/ak-softwares/wa-api-sub000/integrations/gemini"
	"github.com/ak-softwares/wa-api-sub000/integrations/openai"
	"github.com/ak-softwares/wa-api-sub000/pkg/dedupe"
	"github.com/ak-softwares/wa-api-sub000/pkg/msgworker"
	"github.com/ak-softwares/wa-api-sub000/pkg/utils"
	"github.com/ak-softwares/wa-api-sub000/repository"
	"github.com/ak-softwares/wa-api-sub000/ui/websocket"
	"github.com/ak-softwares/wa-api-sub000/usecase"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	db       *gorm.DB
	vkClient *valkey.Client
	pool     *msgworker.Pool
	serverID string

	accountRepo account.IAccountRepository

	sendUsecase    domainSend.ISendUsecase
	chatUsecase    usecase.IChatUsecase
	replyGenerator domainAI.IReplyGenerator
	inboundUsecase domainInbound.IInboundUsecase
	forwarder      *agenthook.Forwarder
)

var rootCmd = &cobra.Command{
	Short: "WhatsApp Business operator console",
	Long: `Multi-tenant operator console over the WhatsApp Cloud API:
inbound webhook orchestration, AI auto-replies and outbound dispatch.`,
}

func init() {
	// Load environment variables first
	utils.LoadConfig(".")

	time.Local = time.UTC

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	if _, err := config.LoadConfig(); err != nil {
		logrus.Fatalf("failed to load configuration: %v", err)
	}

	// Initialize flags first, before any subcommands are added
	initFlags()

	cobra.OnInitialize(initApp)
}

func initFlags() {
	rootCmd.PersistentFlags().StringVarP(
		&config.Global.App.Port,
		"port", "p",
		config.Global.App.Port,
		"change port number with --port <number> | example: --port=8080",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&config.Global.App.Debug,
		"debug", "d",
		config.Global.App.Debug,
		"hide or displaying log with --debug <true/false> | example: --debug=true",
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&config.Global.App.BasicAuth,
		"basic-auth", "b",
		config.Global.App.BasicAuth,
		"basic auth credential | -b=yourUsername:yourPassword",
	)
	rootCmd.PersistentFlags().StringVarP(
		&config.Global.App.BasePath,
		"base-path", "",
		config.Global.App.BasePath,
		`base path for subpath deployment --base-path <string> | example: --base-path="/console"`,
	)
	rootCmd.PersistentFlags().StringSliceVarP(
		&config.Global.App.TrustedProxies,
		"trusted-proxies", "",
		config.Global.App.TrustedProxies,
		`trusted proxy IP ranges for reverse proxy deployments --trusted-proxies <string> | example: --trusted-proxies="10.0.0.0/8,172.16.0.0/12"`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&config.Global.Database.Driver,
		"db-driver", "",
		config.Global.Database.Driver,
		`database driver, sqlite or postgres --db-driver <string> | example: --db-driver="postgres"`,
	)
	rootCmd.PersistentFlags().StringVarP(
		&config.Global.Database.Name,
		"db-name", "",
		config.Global.Database.Name,
		`database name, or file path for sqlite --db-name <string> | example: --db-name="storages/console.db"`,
	)
	rootCmd.PersistentFlags().IntVarP(
		&config.Global.WorkerPool.Size,
		"message-workers", "",
		config.Global.WorkerPool.Size,
		`number of concurrent message workers --message-workers <number> | example: --message-workers=30 (default: 20)`,
	)
	rootCmd.PersistentFlags().IntVarP(
		&config.Global.WorkerPool.QueueSize,
		"message-queue-size", "",
		config.Global.WorkerPool.QueueSize,
		`queue size per message worker --message-queue-size <number> | example: --message-queue-size=1500 (default: 1000)`,
	)
}

func initApp() {
	cfg := config.Global

	if cfg.App.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if err := utils.CreateFolder(cfg.Paths.Storages); err != nil {
		logrus.Errorln(err)
	}

	ctx := context.Background()

	var err error
	db, err = database.NewDatabase(cfg)
	if err != nil {
		logrus.Fatalf("failed to open database: %v", err)
	}
	if err := repository.InitSchema(ctx, db); err != nil {
		logrus.Fatalf("failed to init database schema: %v", err)
	}

	chatRepo := repository.NewChatGormRepository(db)
	usageRepo := repository.NewUsageGormRepository(db)
	accountRepo = repository.NewAccountGormRepository(db)

	// Valkey is optional: without it, dedup falls back to in-process memory
	// and websocket events stay local to this server.
	var deduper dedupe.Deduper
	if cfg.Database.ValkeyEnabled {
		vkClient, err = valkey.NewClient(valkey.Config{
			Address:   cfg.Database.ValkeyAddress,
			Password:  cfg.Database.ValkeyPassword,
			DB:        cfg.Database.ValkeyDB,
			KeyPrefix: cfg.Database.ValkeyKeyPrefix,
		})
		if err != nil {
			logrus.Fatalf("failed to connect to valkey: %v", err)
		}
		deduper = valkey.NewDeduper(vkClient, cfg.AI.DedupTTL)
	} else {
		logrus.Info("[APP] Valkey disabled, using in-memory event dedup")
		deduper = dedupe.NewMemory(cfg.AI.DedupTTL)
	}

	serverID = utils.GetPersistentServerID(cfg.App.ServerID, cfg.Paths.Storages)

	providerClient := meta.NewClient(meta.Config{
		BaseURL: cfg.Provider.GraphBaseURL,
		Version: cfg.Provider.GraphVersion,
		Timeout: cfg.Provider.SendTimeout,
	})
	forwarder = agenthook.NewForwarder(cfg.Agent.ForwardTimeout)

	openaiProvider := openai.NewProvider(cfg.AI.OpenAIKey)
	geminiProvider := gemini.NewProvider(cfg.AI.GeminiKey)

	sendUsecase = usecase.NewSendService(providerClient, chatRepo, cfg.Provider.SendTimeout)
	chatUsecase = usecase.NewChatService(chatRepo, usageRepo)
	replyGenerator = usecase.NewAIService(openaiProvider, geminiProvider, chatRepo, usageRepo,
		cfg.AI.HistoryLimit, cfg.AI.MaxTokens, cfg.AI.Temperature)
	inboundUsecase = usecase.NewInboundService(accountRepo, chatRepo, deduper, forwarder,
		replyGenerator, sendUsecase, websocket.Emitter{})

	pool = msgworker.NewPool(cfg.WorkerPool.Size, cfg.WorkerPool.QueueSize)
	pool.Start(ctx)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// StopApp performs a clean shutdown of the worker pool and all connections.
// The pool drains first so queued webhook events still reach the database.
func StopApp() {
	logrus.Info("[APP] Stopping application...")

	if pool != nil {
		pool.Stop()
	}
	if vkClient != nil {
		vkClient.Close()
	}
	if db != nil {
		if err := database.Close(db); err != nil {
			logrus.Errorf("[APP] Error closing database: %v", err)
		}
	}

	logrus.Info("[APP] Application stopped cleanly.")
}
