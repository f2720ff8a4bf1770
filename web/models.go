package web

// Record is one entry of the built-in demo dataset.
type Record struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

// records is the hard-coded dataset served by /records.
var records = []Record{
	{Name: "Joe", Age: 42},
	{Name: "Mary", Age: 38},
}

type HostnameResponse struct {
	Hostname string `json:"hostname"`
	IP       string `json:"ip"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
