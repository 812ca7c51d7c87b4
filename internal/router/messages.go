package router

import (
	"fmt"

	"coinbot/pkg/tgui"
)

// Callback identifiers on the settings menu.
const (
	cbNotify       = "markup_notify"
	cbCoins        = "settings_coins"
	cbEditSchedule = "edit_schedule"
)

func greeting(firstName string) string {
	return tgui.JoinH(" ", tgui.Esc("Hello,"), tgui.Esc(firstName+" 😊")).String()
}

func topUsageWarning() string {
	return tgui.B("⚠️warning;").String() +
		tgui.Esc(" The command should have one argument (number 1-100) or none").String()
}

func scheduleUsageError() string {
	return "❌" + tgui.B("Please, check you are using the command correctly:").String() +
		"\nmax 24 numbers;\nonly numbers;\nnumbers between 0 and 23 including them;"
}

func scheduleEditHelp() string {
	return "⚠️The notification schedule will be replaced. " +
		tgui.B("List the hours (max 24 numbers)").String() +
		" at which you want to receive notifications.\n\n" +
		tgui.B("Usage:").String() + " " + tgui.Code("/schedule hours").String() +
		"\ne.g. " + tgui.Code("/schedule 0 8 12 18").String() +
		" is a schedule for 0:00, 8:00, 12:00 and 18:00"
}

func settingsTitle() string { return tgui.B("Settings").String() }

func scheduleView(rendered string) string {
	return "⏰ " + tgui.B("Notifications schedule").String() + "\n" + rendered
}

func coinsView(count int) string {
	return fmt.Sprintf("%s %d\n\n%s\nChange: %s\nExample: %s",
		tgui.B("TOP coins:").String(), count,
		tgui.I("(click on command to copy)").String(),
		tgui.Code("/n n[1-100]").String(),
		tgui.Code("/n 99").String(),
	)
}

const (
	successNotice = "✅success"
	failureNotice = "❌failure"
)
