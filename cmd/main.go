package main

import (
	"github.com/nellaishop/order/internal/app"
	"github.com/nellaishop/order/internal/config"
)

func main() {
	config.MustInit()
	app.MustNewApp().Run()
}
