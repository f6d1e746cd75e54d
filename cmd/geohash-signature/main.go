// 命令行入口：从 GeoJSON 文件生成 geohash 签名，支持批量清单
package main

import (
	"os"

	"geohash-signature/internal/logger"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	logger.Setup()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
