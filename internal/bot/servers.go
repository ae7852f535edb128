package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/serverhealth/core/logger"
	"github.com/m3rciful/serverhealth/core/telegram/format"
	"github.com/m3rciful/serverhealth/core/telegram/ui"
	"github.com/m3rciful/serverhealth/internal/domain"
)

const lastSeenLayout = "2006-01-02 15:04"

func lastSeen(srv domain.Server) string {
	if srv.LastSeenAt == nil {
		return "not checked"
	}
	return srv.LastSeenAt.UTC().Format(lastSeenLayout)
}

func sshPort(srv domain.Server) int {
	if srv.SSHPort <= 0 {
		return domain.DefaultSSHPort
	}
	return srv.SSHPort
}

func idPayload(id int64) string { return strconv.FormatInt(id, 10) }

func (b *Bot) serverList(ctx context.Context) (ui.Message, error) {
	servers, err := b.Store.ListServers(ctx)
	if err != nil {
		return ui.Message{}, err
	}
	if len(servers) == 0 {
		return ui.Text("No servers added yet.").WithRows(back(ActionServers)), nil
	}

	var sb strings.Builder
	sb.WriteString("📋 <b>Servers:</b>\n\n")
	for i, srv := range servers {
		fmt.Fprintf(&sb, "%d. %s %s\n", i+1, srv.StatusIcon(), format.Bold(srv.Name))
		fmt.Fprintf(&sb, "   Host: %s\n", format.EscapeHTML(srv.Host))
		if desc := format.DerefString(srv.Description, ""); desc != "" {
			fmt.Fprintf(&sb, "   Description: %s\n", format.EscapeHTML(desc))
		}
		fmt.Fprintf(&sb, "   Status: %s\n", format.EscapeHTML(srv.Status))
		fmt.Fprintf(&sb, "   Last seen: %s\n\n", lastSeen(srv))
	}
	return ui.HTMLText(sb.String()).WithRows(back(ActionServers)), nil
}

func (b *Bot) statusList(ctx context.Context) (ui.Message, error) {
	servers, err := b.Store.ListServers(ctx)
	if err != nil {
		return ui.Message{}, err
	}
	if len(servers) == 0 {
		return ui.Text("No servers added yet.").WithRows(back(ActionServers)), nil
	}

	var sb strings.Builder
	sb.WriteString("🔍 <b>Server status:</b>\n\n")
	rows := make([][]ui.Button, 0, len(servers)+1)
	for i, srv := range servers {
		fmt.Fprintf(&sb, "%d. %s %s\n   %s | %s\n\n",
			i+1, srv.StatusIcon(), format.Bold(srv.Name), format.EscapeHTML(srv.Host), lastSeen(srv))
		rows = append(rows, ui.Row(ui.Action("🔍 "+srv.Name, ActionStatusCheck, idPayload(srv.ID))))
	}
	sb.WriteString("Tap a server to check it now.")
	rows = append(rows, back(ActionServers))
	return ui.HTMLText(sb.String()).WithRows(rows...), nil
}

// statusCheck probes the host and records the result.
func (b *Bot) statusCheck(ctx context.Context, id int64) (ui.Message, error) {
	srv, err := b.Store.GetServer(ctx, id)
	if errors.Is(err, domain.ErrServerNotFound) {
		return notFound(ActionServersStatus), nil
	}
	if err != nil {
		return ui.Message{}, err
	}

	online := b.Probe.Reachable(ctx, srv)
	status, icon, label := domain.StatusOffline, "🔴", "offline"
	if online {
		status, icon, label = domain.StatusOnline, "🟢", "online"
	}
	now := b.now().UTC()
	if err := b.Store.SetStatus(ctx, id, status, now); err != nil {
		return ui.Message{}, err
	}
	logger.Info(ctx, "app", "server.checked",
		slog.Int64("server_id", id),
		slog.String("status", status),
	)

	text := format.Lines(
		icon+" "+format.Bold(srv.Name)+"\n",
		"<b>Host:</b> "+format.Code(net.JoinHostPort(srv.Host, strconv.Itoa(sshPort(srv)))),
		"<b>Status:</b> "+label,
		"<b>Checked at:</b> "+now.Format(time.DateTime)+" UTC",
	)
	return ui.HTMLText(text).WithRows(back(ActionServersStatus)), nil
}

func (b *Bot) deleteList(ctx context.Context) (ui.Message, error) {
	servers, err := b.Store.ListServers(ctx)
	if err != nil {
		return ui.Message{}, err
	}
	if len(servers) == 0 {
		return ui.Text("No servers to delete.").WithRows(back(ActionServers)), nil
	}

	var sb strings.Builder
	sb.WriteString("🗑 <b>Choose a server to delete:</b>\n\n")
	rows := make([][]ui.Button, 0, len(servers)+1)
	for i, srv := range servers {
		fmt.Fprintf(&sb, "%d. %s %s (%s)\n", i+1, srv.StatusIcon(), format.Bold(srv.Name), format.EscapeHTML(srv.Host))
		rows = append(rows, ui.Row(ui.Action("🗑 "+srv.Name, ActionDeleteConfirm, idPayload(srv.ID))))
	}
	rows = append(rows, back(ActionServers))
	return ui.HTMLText(sb.String()).WithRows(rows...), nil
}

func (b *Bot) deleteConfirm(ctx context.Context, id int64) (ui.Message, error) {
	srv, err := b.Store.GetServer(ctx, id)
	if errors.Is(err, domain.ErrServerNotFound) {
		return notFound(ActionServersDelete), nil
	}
	if err != nil {
		return ui.Message{}, err
	}
	text := format.Lines(
		"⚠️ <b>Delete this server?</b>\n",
		"<b>Name:</b> "+format.EscapeHTML(srv.Name),
		"<b>Host:</b> "+format.EscapeHTML(srv.Host)+"\n",
		"All of its metrics are removed too. This cannot be undone!",
	)
	return ui.HTMLText(text).WithRows(ui.Row(
		ui.Action("❌ Delete", ActionDeleteExecute, idPayload(id)),
		ui.Action("🚫 Cancel", ActionServersDelete),
	)), nil
}

func (b *Bot) deleteExecute(ctx context.Context, id int64) (ui.Message, error) {
	name, err := b.Store.DeleteServer(ctx, id)
	if errors.Is(err, domain.ErrServerNotFound) {
		return notFound(ActionServers), nil
	}
	if err != nil {
		return ui.Message{}, err
	}
	logger.Info(ctx, "app", "server.deleted", slog.Int64("server_id", id))
	return ui.HTMLText(fmt.Sprintf("✅ Server %s deleted.", format.Bold(name))).WithRows(back(ActionServers)), nil
}
