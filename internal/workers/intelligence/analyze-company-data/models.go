package analyzecompanydata

type Input struct {
	Company string `json:"company"`
	RawData string `json:"rawData"`
}

type Output struct {
	Company  string `json:"company"`
	Analysis string `json:"analysis"`
}
