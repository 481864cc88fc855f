package version

const (
	AppName        = "Server Siren"
	AppDescription = "Companion realm server — emotional souls, phantom crowds, timed waves."
	AppFullName    = AppName + " (" + AppDescription + ")"
)
