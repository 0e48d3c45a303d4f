// Package portal talks to xdg-desktop-portal over the D-Bus session bus.
// Every portal call returns a Request object path and answers later with a
// Response signal on it; Portal.request hides that round trip.
package portal

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"sync"
	"sync/atomic"

	"github.com/godbus/dbus/v5"

	apperrors "github.com/bryanchriswhite/focusshot/internal/errors"
	"github.com/bryanchriswhite/focusshot/internal/logger"
)

// Portal D-Bus constants
const (
	portalService    = "org.freedesktop.portal.Desktop"
	portalPath       = "/org/freedesktop/portal/desktop"
	requestIface     = "org.freedesktop.portal.Request"
	screenshotIface  = "org.freedesktop.portal.Screenshot"
	fileChooserIface = "org.freedesktop.portal.FileChooser"
)

// Response codes of org.freedesktop.portal.Request.Response.
const (
	ResponseSuccess   uint32 = 0
	ResponseCancelled uint32 = 1
	ResponseOther     uint32 = 2
)

// Portal is a session-bus client for the desktop portal.
type Portal struct {
	conn *dbus.Conn
	mu   sync.Mutex
	seq  atomic.Uint64
}

// Connect opens a private session bus connection.
func Connect() (*Portal, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}
	return &Portal{conn: conn}, nil
}

// Close closes the bus connection.
func (p *Portal) Close() error {
	return p.conn.Close()
}

func (p *Portal) nextToken() string {
	return fmt.Sprintf("focusshot%d_%d", os.Getpid(), p.seq.Add(1))
}

// request calls method with args followed by options and waits for the
// matching Response signal. A user dismissal yields ErrUserCancelled.
func (p *Portal) request(ctx context.Context, method string, args []interface{}, options map[string]dbus.Variant) (map[string]dbus.Variant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	log := logger.WithComponent("portal")
	if options == nil {
		options = map[string]dbus.Variant{}
	}
	options["handle_token"] = dbus.MakeVariant(p.nextToken())

	// Subscribe before calling so a fast response is not lost
	responseChan := make(chan *dbus.Signal, 10)
	matchRule := fmt.Sprintf("type='signal',interface='%s',member='Response'", requestIface)
	if err := p.conn.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchRule).Err; err != nil {
		log.Warn().Err(err).Msg("Failed to add match rule")
	}
	p.conn.Signal(responseChan)
	defer p.conn.RemoveSignal(responseChan)

	var requestPath dbus.ObjectPath
	obj := p.conn.Object(portalService, portalPath)
	call := obj.CallWithContext(ctx, method, 0, append(args, options)...)
	if err := call.Store(&requestPath); err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	log.Debug().Str("method", method).Str("request_path", string(requestPath)).Msg("Waiting for portal response")

	for {
		select {
		case <-ctx.Done():
			p.conn.Object(portalService, requestPath).Call(requestIface+".Close", 0)
			return nil, ctx.Err()
		case sig := <-responseChan:
			if sig.Path != requestPath || sig.Name != requestIface+".Response" {
				continue
			}
			code, results, err := parseResponse(sig)
			if err != nil {
				return nil, err
			}
			switch code {
			case ResponseSuccess:
				return results, nil
			case ResponseCancelled:
				return nil, fmt.Errorf("%s: %w", method, apperrors.ErrUserCancelled)
			default:
				return nil, fmt.Errorf("%s: portal request failed (code %d)", method, code)
			}
		}
	}
}

func parseResponse(sig *dbus.Signal) (uint32, map[string]dbus.Variant, error) {
	if len(sig.Body) < 2 {
		return 0, nil, fmt.Errorf("invalid portal response: %d body values", len(sig.Body))
	}
	code, ok := sig.Body[0].(uint32)
	if !ok {
		return 0, nil, fmt.Errorf("invalid portal response code type %T", sig.Body[0])
	}
	results, ok := sig.Body[1].(map[string]dbus.Variant)
	if !ok {
		return 0, nil, fmt.Errorf("invalid portal results type %T", sig.Body[1])
	}
	return code, results, nil
}

// URIToPath converts a file:// URI returned by the portal to a local path.
func URIToPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse uri %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}
	if u.Path == "" {
		return "", fmt.Errorf("empty path in uri %q", uri)
	}
	return u.Path, nil
}
