package bot

import "proxybot/pkg/tgui"

// Callback data carried by the inline buttons.
const (
	CbGetProxies     = "get_proxies"
	CbGetConfigs     = "get_configs"
	CbStatus         = "status"
	CbLogs           = "logs"
	CbAdminPanel     = "admin_panel"
	CbStartScheduler = "start_scheduler"
	CbStopScheduler  = "stop_scheduler"
	CbListChannels   = "list_channels"
	CbBackMain       = "back_main"
)

func mainMenu() *tgui.Inline {
	return tgui.NewInline().
		Row(tgui.Btn("🛡️ Get Proxies", CbGetProxies), tgui.Btn("🔗 Get Configs", CbGetConfigs)).
		Row(tgui.Btn("📊 Status", CbStatus), tgui.Btn("📜 Logs", CbLogs)).
		Row(tgui.Btn("⚙️ Admin Panel", CbAdminPanel))
}

func adminMenu() *tgui.Inline {
	return tgui.NewInline().
		Row(tgui.Btn("▶️ Start Scheduler", CbStartScheduler), tgui.Btn("⏹️ Stop Scheduler", CbStopScheduler)).
		Row(tgui.Btn("📋 List Channels", CbListChannels)).
		Row(tgui.Btn("🔙 Back", CbBackMain))
}

func backMenu() *tgui.Inline {
	return tgui.NewInline().Row(tgui.Btn("🔙 Back", CbBackMain))
}
