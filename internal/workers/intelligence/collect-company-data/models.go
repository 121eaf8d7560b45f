package collectcompanydata

type Input struct {
	Company string `json:"company"`
}

type Output struct {
	Company    string   `json:"company"`
	RawData    string   `json:"rawData"`
	Structured bool     `json:"structured"`
	Sources    []string `json:"sources"`
}
