// Package cli is the terminal chat surface and the access gate in front
// of it. It is a pure consumer of the chat client's published state:
// input goes down through SendMessage, rendering reads snapshots.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/roqcodes/ZyraClient/internal/backend"
	"github.com/roqcodes/ZyraClient/internal/chat"
	"github.com/roqcodes/ZyraClient/internal/config"
	"github.com/roqcodes/ZyraClient/internal/session"
	"github.com/roqcodes/ZyraClient/internal/shop"
)

var (
	promptStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5")).Bold(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	faintStyle     = lipgloss.NewStyle().Faint(true)
	cardStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	titleStyle     = lipgloss.NewStyle().Bold(true)
)

// App wires the chat surface to the client, resolver and backend.
type App struct {
	cfg      config.Config
	client   *chat.Client
	resolver *shop.Resolver
	api      *backend.Client
	logger   *slog.Logger
	in       io.Reader
	out      io.Writer

	renderedProducts string // ids of the last product list shown
}

func New(cfg config.Config, client *chat.Client, resolver *shop.Resolver, api *backend.Client, logger *slog.Logger, in io.Reader, out io.Writer) *App {
	return &App{
		cfg:      cfg,
		client:   client,
		resolver: resolver,
		api:      api,
		logger:   logger,
		in:       in,
		out:      out,
	}
}

// Run gates on shop authentication and then enters the chat loop.
// Unauthenticated users are sent to the install flow instead; the gate
// shows a neutral line while identity resolution is in flight.
func (a *App) Run(ctx context.Context) error {
	fmt.Fprintln(a.out, faintStyle.Render("Checking shop..."))

	if !a.resolver.Authenticate(ctx) {
		return a.runInstall()
	}

	shopData := a.resolver.Shop()
	fmt.Fprintln(a.out, titleStyle.Render("=== Zyra Shop Assistant ==="))
	fmt.Fprintf(a.out, "Shop: %s\n", shopData.ShopDomain)
	fmt.Fprintln(a.out, faintStyle.Render("Type /help for commands, /quit to exit"))
	fmt.Fprintln(a.out)

	if a.cfg.SessionID != "" {
		a.client.ResumeSession(a.cfg.SessionID)
		a.renderHistory()
	}

	scanner := bufio.NewScanner(a.in)
	for {
		fmt.Fprint(a.out, promptStyle.Render("You: "))
		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			quit, err := a.handleCommand(input)
			if err != nil {
				fmt.Fprintln(a.out, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
				a.logger.Error("command error", "error", err)
			}
			if quit {
				break
			}
			continue
		}

		a.runTurn(ctx, input)
	}

	fmt.Fprintln(a.out, "Goodbye!")
	return nil
}

// runTurn submits one message and renders the streamed reply. Input is
// blocked until the turn reaches a terminal state, which serializes
// turns the way the loading flag requires.
func (a *App) runTurn(ctx context.Context, input string) {
	fmt.Fprint(a.out, assistantStyle.Render("Zyra: "))

	var streamed bool
	a.client.OnDelta = func(delta string) {
		streamed = true
		fmt.Fprint(a.out, delta)
	}
	a.client.SendMessage(ctx, input)
	a.client.OnDelta = nil

	if !streamed {
		// Nothing streamed: the turn ended in a surfaced error message.
		if msg, ok := lastAssistant(a.client.Messages()); ok {
			fmt.Fprint(a.out, errorStyle.Render(msg.Text))
		}
	}
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out)

	a.renderNewProducts()
}

func (a *App) handleCommand(cmd string) (bool, error) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return false, nil
	}

	switch parts[0] {
	case "/quit", "/exit":
		return true, nil

	case "/clear":
		a.client.ClearMessages()
		a.renderedProducts = ""
		fmt.Fprintln(a.out, "Conversation cleared.")
		return false, nil

	case "/history":
		a.renderHistory()
		return false, nil

	case "/products":
		a.renderProducts(a.client.Products())
		return false, nil

	case "/session":
		if id := a.client.SessionID(); id != "" {
			fmt.Fprintf(a.out, "Session: %s\n", id)
		} else {
			fmt.Fprintln(a.out, "No session yet - send a message first.")
		}
		return false, nil

	case "/shop":
		if data := a.resolver.Shop(); data != nil {
			fmt.Fprintf(a.out, "Shop: %s (installed %s)\n", data.ShopDomain, data.InstalledAt)
		}
		return false, nil

	case "/help":
		fmt.Fprintln(a.out, "Available commands:")
		fmt.Fprintln(a.out, "  /quit, /exit   - Exit the assistant")
		fmt.Fprintln(a.out, "  /clear         - Clear the conversation and start over")
		fmt.Fprintln(a.out, "  /history       - Show the conversation so far")
		fmt.Fprintln(a.out, "  /products      - Show the current product recommendations")
		fmt.Fprintln(a.out, "  /session       - Show the chat session id")
		fmt.Fprintln(a.out, "  /shop          - Show the connected shop")
		fmt.Fprintln(a.out, "  /help          - Show this help message")
		return false, nil

	default:
		return false, fmt.Errorf("unknown command: %s", parts[0])
	}
}

// runInstall is the install entry point: ask for the shop domain and
// hand the user the backend's OAuth install URL.
func (a *App) runInstall() error {
	fmt.Fprintln(a.out, titleStyle.Render("=== Zyra Shop Assistant - Install ==="))
	fmt.Fprintln(a.out, "No shop is connected yet.")
	fmt.Fprint(a.out, "Enter your shop domain (e.g. yourshop.myshopify.com): ")

	scanner := bufio.NewScanner(a.in)
	if !scanner.Scan() {
		return nil
	}
	domain := shop.Normalize(scanner.Text())
	if domain == "" {
		fmt.Fprintln(a.out, errorStyle.Render("Please enter your shop domain."))
		return nil
	}

	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "Open this URL in your browser to install the app:")
	fmt.Fprintln(a.out, "  "+a.api.InstallURL(domain))
	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "Then run again with: zyra -shop %s\n", domain)
	fmt.Fprintln(a.out, "If the browser left you on a callback URL, finish with: zyra -callback '<url>'")
	return nil
}

// CompleteAuth finishes the OAuth handshake from a pasted callback URL,
// the terminal analog of the browser's /auth/callback page.
func (a *App) CompleteAuth(ctx context.Context, rawURL string) error {
	code, shopDomain, hmac, state, err := parseCallbackURL(rawURL)
	if err != nil {
		return err
	}

	result, err := a.api.CompleteAuth(ctx, code, shopDomain, hmac, state)
	if err != nil {
		return err
	}
	if !result.Success {
		if result.Error != "" {
			return fmt.Errorf("installation failed: %s", result.Error)
		}
		return fmt.Errorf("installation failed")
	}

	a.resolver.Set(shopDomain)
	fmt.Fprintf(a.out, "Shop %s connected. Run zyra to start chatting.\n", shop.Normalize(shopDomain))
	return nil
}

func parseCallbackURL(rawURL string) (code, shopDomain, hmac, state string, err error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", "", "", "", fmt.Errorf("invalid callback URL: %w", err)
	}
	q := u.Query()
	code = q.Get("code")
	shopDomain = q.Get("shop")
	hmac = q.Get("hmac")
	state = q.Get("state")
	if code == "" || shopDomain == "" {
		return "", "", "", "", fmt.Errorf("callback URL is missing code or shop parameters")
	}
	return code, shopDomain, hmac, state, nil
}

func (a *App) renderHistory() {
	messages := a.client.Messages()
	if len(messages) == 0 {
		fmt.Fprintln(a.out, faintStyle.Render("No messages yet. Ask about your products!"))
		return
	}
	for _, msg := range messages {
		switch msg.SenderType {
		case session.SenderUser:
			fmt.Fprintln(a.out, promptStyle.Render("You: ")+msg.Text)
		default:
			fmt.Fprintln(a.out, assistantStyle.Render("Zyra: ")+msg.Text)
		}
	}
	fmt.Fprintln(a.out)
}

// renderNewProducts shows the product list when it changed this turn.
func (a *App) renderNewProducts() {
	products := a.client.Products()
	if len(products) == 0 {
		return
	}
	var ids []string
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	key := strings.Join(ids, ",")
	if key == a.renderedProducts {
		return
	}
	a.renderedProducts = key
	a.renderProducts(products)
}

func (a *App) renderProducts(products []session.Product) {
	if len(products) == 0 {
		fmt.Fprintln(a.out, faintStyle.Render("No product recommendations yet."))
		return
	}
	for _, p := range products {
		lines := []string{titleStyle.Render(p.Title) + "  " + p.Price}
		if desc := truncate(p.Description, 76); desc != "" {
			lines = append(lines, desc)
		}
		lines = append(lines, faintStyle.Render("/products/"+p.Handle))
		card := cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
		fmt.Fprintln(a.out, card)
	}
	fmt.Fprintln(a.out)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func lastAssistant(messages []session.Message) (session.Message, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].SenderType == session.SenderAssistant {
			return messages[i], true
		}
	}
	return session.Message{}, false
}
