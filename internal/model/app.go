package model

const (
	AppServiceName = "backup_exporter"
	NamespaceName  = "fabdesk"
)

var versions = []string{
	"26.08",
	"26.05",
	"26.02",
	"25.11",
}

var (
	CurrentVersion = versions[0]
)
