package browser

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"

	"esteira/internal/lookup"
)

// Locator strategy lists. Each list is ordered by reliability: the portal's
// markup drifts between releases, so every screen element is addressed by a
// chain of XPath candidates and the first one that resolves to a visible
// element wins.
var (
	loginUserStrategies = []string{
		`//input[@id='login_username']`,
		`//input[@name='username']`,
		`//input[@type='text' and contains(@placeholder,'suário')]`,
	}
	loginPassStrategies = []string{
		`//input[@id='login_password']`,
		`//input[@name='password']`,
		`//input[@type='password']`,
	}
	loginSubmitStrategies = []string{
		`//button[@type='submit']`,
		`//button[contains(.,'Entrar')]`,
		`//input[@type='submit']`,
	}

	searchFieldStrategies = []string{
		`//input[@placeholder='Pesquisa']`,
		`//input[contains(@placeholder,'esquisa')]`,
		`//input[@type='search']`,
	}
	filterButtonStrategies = []string{
		`//button[contains(.,'Filtrar')]`,
		`//button[contains(@class,'filter')]`,
	}
	noResultsStrategies = []string{
		`//*[contains(text(),'Nenhum') or contains(text(),'nenhum')][contains(text(),'registro') or contains(text(),'resultado') or contains(text(),'encontrado')]`,
	}
	resultRowStrategies = []string{
		`//tbody/tr[td]`,
		`//div[contains(@class,'list')]//div[contains(@class,'item')]`,
	}
	phaseCellStrategies = []string{
		`(//tbody/tr)[1]/td[2]`,
		`(//div[contains(@class,'list')]//div[contains(@class,'item')])[1]//*[contains(@class,'fase') or contains(@class,'status')]`,
	}
	expandRowStrategies = []string{
		`(//tbody/tr)[1]//button[contains(@class,'expand')]`,
		`(//tbody/tr)[1]//*[name()='svg' or name()='i'][contains(@class,'chevron') or contains(@class,'arrow')]`,
		`(//tbody/tr)[1]/td[1]`,
		`(//tbody/tr)[1]//button`,
		`(//tbody/tr)[1]`,
	}
	approvalStepStrategies = []string{
		`//div[contains(@class,'step')][contains(.,'Averbação')]`,
		`//li[contains(.,'Averbação')]`,
		`//button[contains(.,'Averbação')]`,
		`//span[contains(text(),'Averbação')]/ancestor::*[self::div or self::li][1]`,
		`//*[contains(@class,'timeline')]//*[contains(text(),'Averbação')]`,
		`//*[contains(text(),'Averbação')]`,
	}
	historyHeadingStrategies = []string{
		`//*[contains(text(),'Histórico') or contains(text(),'histórico')]`,
		`//button[contains(.,'Histórico')]`,
	}
	approvalRowStrategies = []string{
		`//tr[contains(.,'aprovada ao realizar averba')]`,
		`//tr[contains(.,'averbação na Dataprev')]`,
		`//div[contains(@class,'hist')]//*[contains(text(),'aprovada ao realizar averba')]/ancestor::*[self::tr or self::div][1]`,
		`//div[contains(@class,'hist')]//*[contains(text(),'averbação na Dataprev')]/ancestor::*[self::tr or self::div][1]`,
	}
	closeButtonStrategies = []string{
		`//button[@aria-label='Close' or @aria-label='Fechar']`,
		`//button[contains(@class,'close')]`,
		`//*[contains(@class,'modal')]//button[contains(.,'Fechar')]`,
		`//*[contains(@class,'modal')]//*[name()='svg'][contains(@class,'close')]/parent::button`,
	}
)

// query tries each XPath in order, giving every strategy an equal slice of
// the total timeout, and returns the first visible element. A chain that
// exhausts all strategies yields lookup.ErrNotFound.
func query(page *rod.Page, total time.Duration, strategies []string) (*rod.Element, error) {
	per := total / time.Duration(len(strategies))
	if per < 500*time.Millisecond {
		per = 500 * time.Millisecond
	}
	for _, xpath := range strategies {
		el, err := page.Timeout(per).ElementX(xpath)
		if err != nil {
			continue
		}
		el = el.CancelTimeout()
		if vis, err := el.Visible(); err != nil || !vis {
			continue
		}
		return el, nil
	}
	return nil, fmt.Errorf("no strategy matched (%d tried): %w", len(strategies), lookup.ErrNotFound)
}

// existsNow checks the strategies without waiting: it sees only elements
// already in the DOM.
func existsNow(page *rod.Page, strategies []string) bool {
	for _, xpath := range strategies {
		els, err := page.ElementsX(xpath)
		if err != nil || len(els) == 0 {
			continue
		}
		if vis, err := els.First().Visible(); err == nil && vis {
			return true
		}
	}
	return false
}
