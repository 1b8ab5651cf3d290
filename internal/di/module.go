package di

import (
	"github.com/mkravets/bookpress/internal/adapter/catalog"
	"github.com/mkravets/bookpress/internal/adapter/mailer"
	"github.com/mkravets/bookpress/internal/adapter/payment"
	"github.com/mkravets/bookpress/internal/adapter/printing"
	"github.com/mkravets/bookpress/internal/app"
	"github.com/mkravets/bookpress/internal/config"
	"github.com/mkravets/bookpress/internal/logger"
	"github.com/mkravets/bookpress/internal/pkg/signature"
	"github.com/mkravets/bookpress/internal/server/http/handlers"
	"github.com/mkravets/bookpress/internal/server/http/router"
	"github.com/mkravets/bookpress/internal/storage/postgres"
	"github.com/mkravets/bookpress/internal/usecase"
	"go.uber.org/fx"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		signature.Module,
		postgres.Module,
		payment.Module,
		printing.Module,
		mailer.Module,
		catalog.Module,
		usecase.Module,
		fx.Provide(func(facade *app.FulfillmentFacade) handlers.Facade { return facade }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
