package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"nhooyr.io/websocket"

	"github.com/seu-repo/vitrina-voz/internal/adapter/http/fiber/middleware"
	wsAdapter "github.com/seu-repo/vitrina-voz/internal/adapter/websocket"
)

var remoteURL string

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Type commands into a running server over its voice socket",
	Long: `Connects to /ws/voice on a running server and sends each line as a typed
utterance. Cart, signal and navigation events pushed by the server are printed
as they arrive.`,
	RunE: runRemote,
}

func init() {
	remoteCmd.Flags().StringVar(&remoteURL, "url", "ws://localhost:8080/ws/voice", "voice socket URL")
	rootCmd.AddCommand(remoteCmd)
}

// remoteSession relays typed lines to the server and prints its frames.
type remoteSession struct {
	*printer
	conn *websocket.Conn
}

func dialRemote(ctx context.Context, url, id string, p *printer) (*remoteSession, error) {
	header := http.Header{}
	header.Set(middleware.ClientIDHeader, id)

	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return &remoteSession{printer: p, conn: conn}, nil
}

// listen prints server frames until the socket closes.
func (r *remoteSession) listen(ctx context.Context) error {
	for {
		_, data, err := r.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		var frame wsAdapter.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			r.printf("[error] trama inválida: %v\n", err)
			continue
		}
		switch frame.Kind {
		case "event":
			if frame.Event != nil {
				r.event(*frame.Event)
			}
		case "error":
			r.printf("[error] %s\n", frame.Error)
		}
	}
}

func (r *remoteSession) exec(ctx context.Context, line string) error {
	switch line {
	case "":
		return nil
	case ":salir", ":q", "exit":
		return errQuit
	case ":ayuda", ":help":
		r.help()
		return nil
	}
	data, err := json.Marshal(map[string]string{"type": wsAdapter.MsgText, "text": line})
	if err != nil {
		return err
	}
	return r.conn.Write(ctx, websocket.MessageText, data)
}

func (r *remoteSession) Close() error {
	return r.conn.Close(websocket.StatusNormalClosure, "bye")
}

func runRemote(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r, err := dialRemote(ctx, remoteURL, clientID, &printer{out: cmd.OutOrStdout()})
	if err != nil {
		return err
	}
	defer r.Close()

	listenErr := make(chan error, 1)
	go func() { listenErr <- r.listen(ctx) }()

	fmt.Fprintf(cmd.OutOrStdout(), "Conectado a %s como %s\n", remoteURL, clientID)
	err = readLines(ctx, cmd.InOrStdin(), r.printer, r.exec)
	stop()
	<-listenErr
	return err
}
