package registry

// Company names as they appear in the dashboard selectors.
const (
	PlugtechBrasil   = "Plugtech Brasil"
	PlugtechGestao   = "Plugtech Gestão"
	PlugtechServicos = "Plugtech Serviços"
)

var defaultCompanies = []Company{
	{
		Name: PlugtechBrasil,
		Accounts: []string{
			"BB PLUG BRASIL RF", "BNB PLUG BRASIL 8299", "BNB ES FI PLUG BRASI",
			"BB PLUG BRASIL", "BNB RS FI PLUG BRASI", "BNB PLUG BRASIL13815",
			"BNB PLUG BRASIL13910", "CEF PLUG BRASIL", "CEF AP PLUG BRASIL",
			"ADM PLUG BRASIL", "PERDA CONT PLUG BRAS", "PJBANK PLUGTECH BRAS",
			"CARTAO 9412 PLUG BRA", "F RESERVA P BRASIL",
		},
	},
	{
		Name: PlugtechGestao,
		Accounts: []string{
			"BB PLUG GESTAO RF", "BB PLUG GESTAO", "SICRED CAPITAL GESTA",
			"ADM PLUG GESTAO", "BNB PLUG GESTAO32495", "PJBANK PLUGTECH GEST",
			"SICRED PLUG GESTAO",
		},
	},
	{
		Name: PlugtechServicos,
		Accounts: []string{
			"BB PLUG SERVICOS RF", "BB PLUG SERVICOS", "BNB PLUG SERV 26551",
			"BNB PLUG SERVIC28454", "BNB FI AT PLUG SERVI", "CEF PLUG SERVICOS",
			"CEF AP PLUG SERVICOS", "TESOURARIA PLUG SERV", "ADM PLUG SERVICOS",
			"PERDA CONT PLUG SERV", "CARTAO 3948 PLUG SER", "PJBANK PLUGTECG SERV",
			"F RESERVA P SERVICOS",
		},
	},
}

// Default returns the built-in registry for the three Plugtech companies.
func Default() *Registry {
	r, err := New(defaultCompanies...)
	if err != nil {
		panic(err)
	}
	return r
}
