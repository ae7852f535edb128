package bot

import (
	"github.com/m3rciful/serverhealth/core/telegram/format"
	"github.com/m3rciful/serverhealth/core/telegram/ui"
	"github.com/m3rciful/serverhealth/internal/analytics"
	"github.com/m3rciful/serverhealth/internal/wizard"
)

// Callback keys.
const (
	ActionMain     = analytics.ActionMain
	ActionServers  = "servers"
	ActionMetrics  = "metrics"
	ActionAlerts   = "alerts"
	ActionSettings = "settings"
	ActionHelp     = "help"

	ActionServersList   = "servers_list"
	ActionServersAdd    = "servers_add"
	ActionAddCancel     = wizard.CancelAction
	ActionServersStatus = "servers_status"
	ActionStatusCheck   = "servers_status_check"
	ActionServersDelete = "servers_delete"
	ActionDeleteConfirm = "servers_delete_confirm"
	ActionDeleteExecute = "servers_delete_execute"

	ActionMetricsServer = "metrics_server"
	ActionChart         = "chart"
	ActionPredictDisk   = "predict_disk"
	ActionPredictRAM    = "predict_ram"
	ActionAnomaly       = "anomaly"

	ActionAnalytics       = analytics.ActionMenu
	ActionAnalyticsServer = analytics.ActionAnalyze
	ActionAnalyticsEnd    = analytics.ActionEnd
)

const (
	unknownCommandText = "Unknown command"
	unknownTextHint    = "Use /start to open the menu."
	analysisStartText  = "⏳ Starting analysis..."
	notFoundText       = "Server not found."
	backText           = "← Back"
)

func back(action string, payload ...string) []ui.Button {
	return ui.Row(ui.Action(backText, action, payload...))
}

func notFound(backTo string) ui.Message {
	return ui.Text(notFoundText).WithRows(back(backTo))
}

// MainMenu is the root screen.
func MainMenu() ui.Message {
	return ui.Text("Choose a menu section:").WithRows(
		ui.Row(ui.Action("🖥 Servers", ActionServers), ui.Action("📊 Metrics", ActionMetrics)),
		ui.Row(ui.Action("🔔 Alerts", ActionAlerts), ui.Action("📈 Analytics", ActionAnalytics)),
		ui.Row(ui.Action("⚙️ Settings", ActionSettings), ui.Action("❓ Help", ActionHelp)),
	)
}

// ServersMenu is the server management screen.
func ServersMenu() ui.Message {
	return ui.Text("Servers").WithRows(
		ui.Row(ui.Action("📋 Server list", ActionServersList)),
		ui.Row(ui.Action("➕ Add server", ActionServersAdd)),
		ui.Row(ui.Action("🔍 Server status", ActionServersStatus)),
		ui.Row(ui.Action("🗑 Delete server", ActionServersDelete)),
		back(ActionMain),
	)
}

func alertsScreen() ui.Message {
	return ui.HTMLText(format.Lines(
		format.Bold("🔔 Alerts") + "\n",
		"Servers are marked offline when a status check fails and online again when the agent reports.",
		"Use Metrics → anomaly check to look for unusual load.",
	)).WithRows(back(ActionMain))
}

func settingsScreen() ui.Message {
	return ui.HTMLText(format.Lines(
		format.Bold("⚙️ Settings") + "\n",
		"Access, rate limits and service endpoints are set in the bot configuration file.",
	)).WithRows(back(ActionMain))
}

func helpScreen() ui.Message {
	return ui.HTMLText(format.Lines(
		format.Bold("❓ Help") + "\n",
		"/start opens the main menu.",
		"/cancel stops adding a server.\n",
		"🖥 Servers: list, add, check or delete monitored hosts.",
		"📊 Metrics: charts, disk and RAM forecasts, anomaly check.",
		"📈 Analytics: ask the AI about a server. Send questions as plain messages until you end the dialog.",
	)).WithRows(back(ActionMain))
}
