package constants

const (
	ViperConfigFileKey = "config"

	ViperInputDirKey   = "input.dir"
	ViperReportPathKey = "report.path"
	ViperMigrateKey    = "migrate"

	ViperFilesConfirmedKey = "files.confirmed"
	ViperFilesDeathsKey    = "files.deaths"
	ViperFilesRecoveredKey = "files.recovered"

	ViperFetchEnabledKey = "fetch.enabled"
	ViperFetchSourceKey  = "fetch.source_url"
	ViperFetchRetriesKey = "fetch.retries"

	ViperDBHostKey     = "db.host"
	ViperDBPortKey     = "db.port"
	ViperDBUserKey     = "db.user"
	ViperDBPasswordKey = "db.password"
	ViperDBNameKey     = "db.name"
	ViperDBSSLModeKey  = "db.sslmode"
	ViperDBRetriesKey  = "db.connect_retries"

	ViperLogLevelKey = "log.level"

	ViperAggregationKey = "aggregation"
)

const EnvPrefix = "COVTRACK"

// Default feed file names as published by the upstream CSSE repository.
const (
	DefaultConfirmedFile = "time_series_19-covid-Confirmed.csv"
	DefaultDeathsFile    = "time_series_19-covid-Deaths.csv"
	DefaultRecoveredFile = "time_series_19-covid-Recovered.csv"

	DefaultSourceURL = "https://raw.githubusercontent.com/CSSEGISandData/COVID-19/master/csse_covid_19_data/csse_covid_19_time_series"
)
