package main

import (
	"net/http"

	"github.com/jrsteele09/go-dept-admin/apiclient"
	"github.com/jrsteele09/go-dept-admin/authapi"
	"github.com/jrsteele09/go-dept-admin/internal/config"
	"github.com/jrsteele09/go-dept-admin/session"
	"github.com/jrsteele09/go-dept-admin/session/filestorage"
	"github.com/jrsteele09/go-dept-admin/session/redisstorage"
	"github.com/jrsteele09/go-dept-admin/session/storagefake"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// app is the wiring shared by every command: one store over the profile's storage scope.
type app struct {
	store   *session.Store
	auth    *authapi.Client
	api     *apiclient.Client
	closers []func() error
}

func (a *app) Close() {
	for _, c := range a.closers {
		_ = c()
	}
}

func newStorage(cfg config.Config) (session.Storage, func() error, error) {
	switch cfg.GetStorageBackend() {
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
		})
		return redisstorage.New(client, cfg.GetProfile()), client.Close, nil
	case config.StorageMemory:
		return storagefake.NewFakeStorage(), nil, nil
	default:
		fs, err := filestorage.New(cfg.GetSessionFile())
		if err != nil {
			return nil, nil, errors.Wrap(err, "filestorage.New")
		}
		return fs, nil, nil
	}
}

func newApp(cfg config.Config, logger zerolog.Logger, storeOptions ...session.StoreOption) (*app, error) {
	storage, closer, err := newStorage(cfg)
	if err != nil {
		return nil, err
	}
	a := &app{}
	if closer != nil {
		a.closers = append(a.closers, closer)
	}

	options := append([]session.StoreOption{
		session.WithLogger(logger),
		session.WithLegacyMirror(cfg.GetLegacyMirror()),
	}, storeOptions...)
	a.store, err = session.NewStore(storage, options...)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.auth, err = authapi.NewClient(cfg.GetAPIBaseURL(),
		authapi.WithHTTPClient(&http.Client{Timeout: cfg.GetAPITimeout()}),
		authapi.WithLogger(logger),
	)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.api, err = apiclient.NewClient(cfg.GetAPIBaseURL(), a.store,
		apiclient.WithTimeout(cfg.GetAPITimeout()),
		apiclient.WithLogger(logger),
	)
	if err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}
