package app

import (
	credentialHTTP "github.com/allisson/authcore/internal/credential/http"
	cryptoHTTP "github.com/allisson/authcore/internal/crypto/http"
	internalHTTP "github.com/allisson/authcore/internal/http"
	sessionHTTP "github.com/allisson/authcore/internal/session/http"
)

// HTTPServer returns the API server with all routes mounted.
func (c *Container) HTTPServer() (*internalHTTP.Server, error) {
	c.httpServerInit.Do(func() {
		sessionUC, err := c.SessionUseCase()
		if err != nil {
			c.initErrors["httpServer"] = err
			return
		}
		credentialUC, err := c.CredentialUseCase()
		if err != nil {
			c.initErrors["httpServer"] = err
			return
		}
		fieldCipher, err := c.FieldCipher()
		if err != nil {
			c.initErrors["httpServer"] = err
			return
		}
		metricsProvider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["httpServer"] = err
			return
		}

		rc := internalHTTP.RouterConfig{
			Config:            c.config,
			Logger:            c.Logger(),
			SessionUseCase:    sessionUC,
			AuthHandler:       sessionHTTP.NewAuthHandler(sessionUC, c.Logger()),
			CredentialHandler: credentialHTTP.NewCredentialHandler(credentialUC, c.Logger()),
			FieldHandler:      cryptoHTTP.NewFieldHandler(fieldCipher, c.Logger()),
		}
		if metricsProvider != nil {
			rc.MeterProvider = metricsProvider.MeterProvider()
		}

		router := internalHTTP.NewRouter(rc)
		c.httpServer = internalHTTP.NewServer(c.config.ServerHost, c.config.ServerPort, router, c.Logger())
	})
	if err, ok := c.initErrors["httpServer"]; ok {
		return nil, err
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus scrape server, or nil when metrics are
// disabled.
func (c *Container) MetricsServer() (*internalHTTP.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = err
			return
		}
		if provider == nil {
			return
		}
		c.metricsServer = internalHTTP.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			provider,
		)
	})
	if err, ok := c.initErrors["metricsServer"]; ok {
		return nil, err
	}
	return c.metricsServer, nil
}
