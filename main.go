package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "unsafe"

	"github.com/hivecrest/member-api/config"
	"github.com/hivecrest/member-api/database"
	"github.com/hivecrest/member-api/logger"
	"github.com/hivecrest/member-api/web"
	"github.com/hivecrest/member-api/web/global"
	"github.com/hivecrest/member-api/web/service"

	"github.com/joho/godotenv"
	"github.com/op/go-logging"
	"github.com/spf13/cobra"
)

func runWebServer() {
	log.Printf("%v %v", config.GetName(), config.GetVersion())

	switch config.GetLogLevel() {
	case config.Debug:
		logger.InitLogger(logging.DEBUG)
	case config.Info:
		logger.InitLogger(logging.INFO)
	case config.Notice:
		logger.InitLogger(logging.NOTICE)
	case config.Warn:
		logger.InitLogger(logging.WARNING)
	case config.Error:
		logger.InitLogger(logging.ERROR)
	default:
		log.Fatal("unknown log level:", config.GetLogLevel())
	}

	err := database.InitDB(config.GetDBPath())
	if err != nil {
		log.Fatal(err)
	}

	var server *web.Server

	server = web.NewServer()
	global.SetWebServer(server)
	err = server.Start()
	if err != nil {
		log.Println(err)
		return
	}

	sigCh := make(chan os.Signal, 1)
	// Trap shutdown signals
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGTERM)
	for {
		sig := <-sigCh

		switch sig {
		case syscall.SIGHUP:
			err := server.Stop()
			if err != nil {
				logger.Warning("stop server err:", err)
			}
			server = web.NewServer()
			global.SetWebServer(server)
			err = server.Start()
			if err != nil {
				log.Println(err)
				return
			}
		default:
			if err := server.Stop(); err != nil {
				logger.Warning("stop server err:", err)
			}
			if err := database.CloseDB(); err != nil {
				logger.Warning("close db err:", err)
			}
			logger.CloseLogger()
			return
		}
	}
}

func resetSetting() {
	err := database.InitDB(config.GetDBPath())
	if err != nil {
		fmt.Println(err)
		return
	}

	settingService := service.SettingService{}
	err = settingService.ResetSettings()
	if err != nil {
		fmt.Println("reset setting failed:", err)
	} else {
		fmt.Println("reset setting success")
	}
}

func showSetting() {
	err := database.InitDB(config.GetDBPath())
	if err != nil {
		fmt.Println(err)
		return
	}

	settingService := service.SettingService{}
	allSetting, err := settingService.GetAllSetting()
	if err != nil {
		fmt.Println("get current settings failed:", err)
		return
	}
	fmt.Println("current settings as follows:")
	fmt.Println("listen:", allSetting.WebListen)
	fmt.Println("domain:", allSetting.WebDomain)
	fmt.Println("port:", allSetting.WebPort)
	fmt.Println("base path:", allSetting.WebBasePath)
	fmt.Println("session max age (minutes):", allSetting.SessionMaxAge)
	fmt.Println("cors origin:", allSetting.CorsOrigin)
	fmt.Println("time location:", allSetting.TimeLocation)
	fmt.Println("oauth redirect base:", allSetting.OAuthRedirectBase)
}

func updateSetting(port int, corsOrigin string, basePath string) {
	err := database.InitDB(config.GetDBPath())
	if err != nil {
		fmt.Println(err)
		return
	}

	settingService := service.SettingService{}

	if port > 0 {
		err := settingService.SetPort(port)
		if err != nil {
			fmt.Println("set port failed:", err)
		} else {
			fmt.Printf("set port %v success\n", port)
		}
	}
	if corsOrigin != "" {
		err := settingService.SetCorsOrigin(corsOrigin)
		if err != nil {
			fmt.Println("set cors origin failed:", err)
		} else {
			fmt.Println("set cors origin success")
		}
	}
	if basePath != "" {
		err := settingService.SetBasePath(basePath)
		if err != nil {
			fmt.Println("set base path failed:", err)
		} else {
			fmt.Println("set base path success")
		}
	}
}

func migrateDb() {
	dbPath := config.GetDBPath()

	// Refuse to migrate a file that is not a sqlite database.
	if file, err := os.Open(dbPath); err == nil {
		ok, err := database.IsSQLiteDB(file)
		file.Close()
		if err != nil {
			log.Fatal(err)
		}
		if !ok {
			log.Fatalf("%s is not a sqlite database", dbPath)
		}
	}

	fmt.Println("Start migrating database...")
	if err := database.InitDB(dbPath); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Migration done!")
}

func main() {
	// .env is optional; absent files are not an error.
	_ = godotenv.Load()

	var rootCmd = &cobra.Command{
		Use: "member-api",
	}

	var runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run the web server",
		Run: func(cmd *cobra.Command, args []string) {
			runWebServer()
		},
	}

	var migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or migrate the database schema",
		Run: func(cmd *cobra.Command, args []string) {
			migrateDb()
		},
	}

	var settingCmd = &cobra.Command{
		Use:   "setting",
		Short: "Set settings",
	}

	var resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Reset all settings",
		Run: func(cmd *cobra.Command, args []string) {
			resetSetting()
		},
	}

	var showCmd = &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		Run: func(cmd *cobra.Command, args []string) {
			showSetting()
		},
	}

	var updateCmd = &cobra.Command{
		Use:   "update",
		Short: "Update settings",
		Run: func(cmd *cobra.Command, args []string) {
			port, _ := cmd.Flags().GetInt("port")
			corsOrigin, _ := cmd.Flags().GetString("cors")
			basePath, _ := cmd.Flags().GetString("basepath")
			updateSetting(port, corsOrigin, basePath)
		},
	}

	updateCmd.Flags().Int("port", 0, "set api port")
	updateCmd.Flags().String("cors", "", "set allowed cors origin")
	updateCmd.Flags().String("basepath", "", "set api base path")

	settingCmd.AddCommand(resetCmd, showCmd, updateCmd)
	rootCmd.AddCommand(runCmd, migrateCmd, settingCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println("execute failed:", err)
		os.Exit(1)
	}
}
