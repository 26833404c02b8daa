package pdf

// FormatMoney expone formatMoney a los tests externos.
var FormatMoney = formatMoney
