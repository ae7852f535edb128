package bot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/m3rciful/serverhealth/core/telegram/callbacks"
	"github.com/m3rciful/serverhealth/core/telegram/keyboard"
	"github.com/m3rciful/serverhealth/core/telegram/ui"
	"github.com/m3rciful/serverhealth/internal/domain"
	"github.com/m3rciful/serverhealth/internal/predict"
)

// Chart kinds served by the chart site, in menu order.
var chartKinds = []string{"cpu", "ram", "disk", "network", "overview"}

var chartTitles = map[string]string{
	"cpu":      "💻 CPU",
	"ram":      "🧠 RAM",
	"disk":     "💾 Disk",
	"network":  "🌐 Network",
	"overview": "📈 Overview",
}

const noDataText = "Not enough data yet: the agent has not reported any metrics for this server."

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func chartButton(kind string, id int64) ui.Button {
	return ui.Action(chartTitles[kind], ActionChart, callbacks.JoinPayload(kind, idPayload(id)))
}

// pickServer renders one button per server pointing at action.
func (b *Bot) pickServer(ctx context.Context, title, action string) (ui.Message, error) {
	servers, err := b.Store.ListServers(ctx)
	if err != nil {
		return ui.Message{}, err
	}
	rows := make([][]ui.Button, 0, len(servers)+1)
	for _, srv := range servers {
		icon := "🔴"
		if srv.Status == domain.StatusOnline {
			icon = "🟢"
		}
		rows = append(rows, ui.Row(ui.Action(icon+" "+srv.Name, action, idPayload(srv.ID))))
	}
	if len(servers) == 0 {
		title += "\n\nNo servers added yet."
	}
	rows = append(rows, back(ActionMain))
	return ui.Text(title).WithRows(rows...), nil
}

func (b *Bot) metricsMenu(ctx context.Context) (ui.Message, error) {
	return b.pickServer(ctx, "📊 Choose a server:", ActionMetricsServer)
}

func (b *Bot) analyticsMenu(ctx context.Context) (ui.Message, error) {
	return b.pickServer(ctx, "🤖 AI analytics\n\nChoose a server to analyse:", ActionAnalyticsServer)
}

func (b *Bot) metricsServer(ctx context.Context, id int64) (ui.Message, error) {
	srv, err := b.Store.GetServer(ctx, id)
	if errors.Is(err, domain.ErrServerNotFound) {
		return notFound(ActionMetrics), nil
	}
	if err != nil {
		return ui.Message{}, err
	}
	charts := make([]ui.Button, 0, len(chartKinds))
	for _, kind := range chartKinds {
		charts = append(charts, chartButton(kind, id))
	}
	p := idPayload(id)
	return ui.Text(fmt.Sprintf("📊 Server: %s\n\nChoose an action:", srv.Name)).WithRows(
		keyboard.Grid(charts, 2)...,
	).WithRows(
		ui.Row(ui.Action("🔮 Disk forecast", ActionPredictDisk, p), ui.Action("🔮 RAM forecast", ActionPredictRAM, p)),
		ui.Row(ui.Action("🚨 Anomaly check", ActionAnomaly, p)),
		back(ActionMetrics),
	), nil
}

// ChartURL builds the link to a chart page.
func ChartURL(base, kind string, id int64) string {
	q := url.Values{"server_id": {idPayload(id)}}
	return strings.TrimRight(base, "/") + "/chart/" + url.PathEscape(kind) + "?" + q.Encode()
}

func (b *Bot) chart(ctx context.Context, kind string, id int64) (ui.Message, error) {
	title, ok := chartTitles[kind]
	if !ok {
		return ui.Text(unknownCommandText), nil
	}
	srv, err := b.Store.GetServer(ctx, id)
	if errors.Is(err, domain.ErrServerNotFound) {
		return notFound(ActionMetrics), nil
	}
	if err != nil {
		return ui.Message{}, err
	}
	return ui.Text(fmt.Sprintf("📊 %s: %s\n\nTap the button to open the chart:", title, srv.Name)).WithRows(
		ui.Row(ui.Link("📈 Open chart", ChartURL(b.chartsURL, kind, id))),
		back(ActionMetricsServer, idPayload(id)),
	), nil
}

// history loads the server and its recent samples for the forecast screens.
// A nil message means the caller should proceed.
func (b *Bot) history(ctx context.Context, id int64) (domain.Server, []domain.Sample, *ui.Message, error) {
	srv, err := b.Store.GetServer(ctx, id)
	if errors.Is(err, domain.ErrServerNotFound) {
		msg := notFound(ActionMetrics)
		return srv, nil, &msg, nil
	}
	if err != nil {
		return srv, nil, nil, err
	}
	samples, err := b.Store.RecentSamples(ctx, id, predict.HistoryLimit)
	if err != nil {
		return srv, nil, nil, err
	}
	if len(samples) == 0 {
		msg := ui.Text(noDataText).WithRows(back(ActionMetricsServer, idPayload(id)))
		return srv, nil, &msg, nil
	}
	return srv, samples, nil, nil
}

func (b *Bot) predictDisk(ctx context.Context, id int64) (ui.Message, error) {
	srv, samples, early, err := b.history(ctx, id)
	if err != nil || early != nil {
		return deref(early), err
	}
	res, err := b.Forecaster.Disk(ctx, samples)
	if err != nil {
		return ui.Message{}, err
	}
	text := fmt.Sprintf("🔮 Disk forecast: %s\n\n📊 Current usage: %s%%\n📈 Daily growth: %s%%\n⏰ %s",
		srv.Name, num(res.CurrentUsage), num(res.DailyGrowth), res.Message)
	return ui.Text(text).WithRows(back(ActionMetricsServer, idPayload(id))), nil
}

func (b *Bot) predictRAM(ctx context.Context, id int64) (ui.Message, error) {
	srv, samples, early, err := b.history(ctx, id)
	if err != nil || early != nil {
		return deref(early), err
	}
	res, err := b.Forecaster.RAM(ctx, samples)
	if err != nil {
		return ui.Message{}, err
	}
	text := fmt.Sprintf("🔮 RAM forecast: %s\n\n📊 Current usage: %s%%\n📈 Trend: %s\n💡 %s",
		srv.Name, num(res.CurrentUsage), res.Trend, res.Message)
	return ui.Text(text).WithRows(back(ActionMetricsServer, idPayload(id))), nil
}

func (b *Bot) anomaly(ctx context.Context, id int64) (ui.Message, error) {
	srv, samples, early, err := b.history(ctx, id)
	if err != nil || early != nil {
		return deref(early), err
	}
	res, err := b.Forecaster.Anomalies(ctx, samples)
	if err != nil {
		return ui.Message{}, err
	}
	return ui.Text(anomalyText(srv.Name, res)).WithRows(back(ActionMetricsServer, idPayload(id))), nil
}

func anomalyText(name string, res predict.AnomalyReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🚨 Anomaly check: %s\n\n", name)
	switch {
	case len(res.Anomalies) > 0:
		sb.WriteString("Status: ⚠️ Anomalies detected\n\n")
		for _, a := range res.Anomalies {
			fmt.Fprintf(&sb, "• %s: %s%% (usually ~%s%%)\n  Severity: %s\n\n", a.Metric, num(a.Current), num(a.Mean), a.Severity)
		}
	case res.Status != "ok":
		sb.WriteString("Status: ⚠️ Suspicious activity\n\n")
		sb.WriteString("Behaviour deviates from the usual pattern, but every metric is within its limits.")
	default:
		sb.WriteString("Status: ✅ Normal\n\nAll metrics look normal.")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func deref(m *ui.Message) ui.Message {
	if m == nil {
		return ui.Message{}
	}
	return *m
}
