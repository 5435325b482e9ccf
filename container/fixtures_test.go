package container

import (
	"context"
	"errors"
)

type config struct {
	DSN string
}

type repository struct {
	cfg *config
}

func newRepository(cfg *config) *repository {
	return &repository{cfg: cfg}
}

type service struct {
	repo *repository
}

func newService(repo *repository) *service {
	return &service{repo: repo}
}

type counter struct {
	id int
}

type serviceP struct {
	q *serviceQ
}

type serviceQ struct {
	p *serviceP
}

type handler struct {
	Repo    *repository `inject:""`
	AppName string      `inject:"APP_NAME,optional"`
	Region  string      `inject:"REGION,optional"`
	plain   int
}

// hooked records lifecycle hook calls into a shared log.
type hooked struct {
	name     string
	events   *[]string
	failInit bool
}

var errHookFailed = errors.New("hook failed")

func (h *hooked) OnModuleInit(context.Context) error {
	*h.events = append(*h.events, "init:"+h.name)
	if h.failInit {
		return errHookFailed
	}
	return nil
}

func (h *hooked) OnApplicationBootstrap(context.Context) error {
	*h.events = append(*h.events, "bootstrap:"+h.name)
	return nil
}

func (h *hooked) BeforeApplicationShutdown(context.Context) error {
	*h.events = append(*h.events, "shutdown:"+h.name)
	return nil
}

func (h *hooked) OnModuleDestroy(context.Context) error {
	*h.events = append(*h.events, "destroy:"+h.name)
	return nil
}

type database struct {
	hooked
}

type mailer struct {
	hooked
	db *database
}

type badHook struct{}

func (b *badHook) OnModuleInit() {}
