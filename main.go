package main

import (
	"fmt"

	"newtube/video-api/api"
	"newtube/video-api/config"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func main() {
	gin.SetMode(gin.ReleaseMode)

	err := config.Setup()
	if err != nil {
		panic(err)
	}

	a, err := api.NewRouter()
	if err != nil {
		panic(err)
	}

	zap.L().Info("Server starting")

	err = a.Router.Run(fmt.Sprintf(":%d", viper.GetInt("host.port")))
	if err != nil {
		panic(err)
	}
}
