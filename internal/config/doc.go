// Package config provides configuration management for the dashboard.
//
// # Configuration Sources
//
// Values are resolved in the following order, each overriding the last:
//
//	1. Defaults()
//	2. A YAML file (--config, C19_CONFIG, or ./config.yaml when present)
//	3. A .env file in the working directory
//	4. Environment variables
//
// # Environment Variables
//
// Variables follow the pattern C19_<SECTION>_<FIELD>:
//
//	C19_SOURCES_CASES=./testdata/covidtesting.csv
//	C19_HTTP_MAX_RETRIES=5
//	C19_PIPELINE_ROLLING_WINDOW=7
//	C19_LOGGING_LEVEL=debug
//	C19_EXPORT_FORMATS=csv,json
//
// Validation uses validator struct tags and runs once in Load.
package config
