package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "github.com/rs/zerolog"
)

// RequestLogger writes one structured line per request.  Tokens and
// bodies are never logged.
func RequestLogger(log zerolog.Logger) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                c.Error(err)
            }
            req, res := c.Request(), c.Response()

            ev := log.Info()
            switch {
            case res.Status >= 500:
                ev = log.Error().Err(err)
            case res.Status >= 400:
                ev = log.Warn()
            }
            path := c.Path()
            if path == "" {
                path = req.URL.Path
            }
            ev.Str("method", req.Method).
                Str("path", path).
                Int("status", res.Status).
                Dur("latency", time.Since(start)).
                Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
                Str("remote_ip", c.RealIP()).
                Str("user_id", currentUserID(c)).
                Msg("request")
            return nil
        }
    }
}
