package cmd

import (
	"io/ioutil"
	"log"
	"os"
	"path/filepath"

	devConfig "github.com/msumarli/rolodex/dev/config"
	"github.com/msumarli/rolodex/server"
	"github.com/msumarli/rolodex/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start a rolodex server",
	Long:  `The rolodex server exposes the contacts REST API over HTTP`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start(serverConfig())
	},
}

var serverConfigFile string

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverConfigFile, "sconfig", "", "Config for server")
}

func serverConfig() *viper.Viper {
	config = viper.New()

	if isDevEnv {
		serverConfigFile = devConfigFilePath()
	}

	if serverConfigFile == "" {
		cobra.CheckErr(formattedError("must pass --sconfig or run with --dev"))
	}

	config.SetConfigFile(serverConfigFile)
	config.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := config.ReadInConfig(); err != nil {
		log.Panicf("error reading server config file: %v", err)
	}

	return config
}

// devConfigFilePath writes the embedded dev config to ./dev/config/server.yml
// on first use & returns its path.
func devConfigFilePath() string {
	workingDir, err := os.Getwd()
	if err != nil {
		log.Panic(err)
	}

	configDir := filepath.Join(workingDir, "dev", "config")
	if err = utils.CreateDirIfNotExist(configDir); err != nil {
		log.Panic(err)
	}

	configFilePath := filepath.Join(configDir, "server.yml")
	if !utils.FileExist(configFilePath) {
		if err = ioutil.WriteFile(configFilePath, []byte(devConfig.SERVER_YML), 0644); err != nil {
			log.Panic(err)
		}
	}

	return configFilePath
}
