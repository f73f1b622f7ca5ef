package config

import "time"

// Application constants
const (
	AppName    = "C19 Pulse"
	AppVersion = "1.0.0"

	EnvPrefix         = "C19"
	DefaultConfigFile = "config.yaml"

	// Network
	DefaultHTTPTimeout       = 60 * time.Second
	DefaultMaxRetries        = 3
	DefaultRetryDelay        = 2 * time.Second
	DefaultRequestsPerSecond = 2
	DefaultBurst             = 2

	// Pipeline
	DefaultRollingWindow        = 7
	DefaultUnderReportingFactor = 8
	DefaultConcurrency          = 3

	// Statistics Canada estimate used for per-100k rates
	OntarioPopulation = 14915270
	// Not eligible for vaccination
	OntarioPopulationUnderFive = 1882571
)

// Ontario open data locations
const (
	ontarioData = "https://data.ontario.ca/dataset/"

	CasesURL             = ontarioData + "f4f86e54-872d-43f8-8a86-3892fd3cb5e6/resource/ed270bb8-340b-41f9-a7c6-e8ef587e6d11/download/covidtesting.csv"
	VaccinationStatusURL = ontarioData + "752ce2b7-c15a-4965-a3dc-397bf405e7cc/resource/eed63cf2-83dd-4598-b337-b288c0a89a16/download/cases_by_vac_status.csv"
	HospitalizationsURL  = ontarioData + "752ce2b7-c15a-4965-a3dc-397bf405e7cc/resource/274b819c-5d69-4539-a4db-f2950794138c/download/vac_status_hosp_icu.csv"
	CaseDetailURL        = ontarioData + "f4112442-bdc8-45d2-be3c-12efae72fb27/resource/455fd63b-603d-4608-8216-7d8647f43350/download/conposcovidloc.csv"
	VaccinesURL          = ontarioData + "752ce2b7-c15a-4965-a3dc-397bf405e7cc/resource/8a89caa9-511c-4568-af89-7f2174b4378c/download/vaccine_doses.csv"
)
