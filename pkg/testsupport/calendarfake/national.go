package calendarfake

import (
	"fmt"
	"sort"
	"time"
)

// nationalHolidays returns the Italian public holidays of year, by date.
func nationalHolidays(year int) map[string]string {
	holidays := map[string]string{
		formatDate(year, 1, 1):   "Capodanno",
		formatDate(year, 1, 6):   "Epifania",
		formatDate(year, 4, 25):  "Festa della Liberazione",
		formatDate(year, 5, 1):   "Festa del Lavoro",
		formatDate(year, 6, 2):   "Festa della Repubblica",
		formatDate(year, 8, 15):  "Ferragosto",
		formatDate(year, 11, 1):  "Ognissanti",
		formatDate(year, 12, 8):  "Immacolata Concezione",
		formatDate(year, 12, 25): "Natale",
		formatDate(year, 12, 26): "Santo Stefano",
	}

	easter := easterSunday(year)
	holidays[easter.Format(dateLayout)] = "Pasqua"
	holidays[easter.AddDate(0, 0, 1).Format(dateLayout)] = "Lunedì dell'Angelo"

	return holidays
}

// sortedDates returns the keys of m in calendar order.
func sortedDates(m map[string]string) []string {
	dates := make([]string, 0, len(m))
	for d := range m {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}

// easterSunday uses the Meeus/Jones/Butcher algorithm.
func easterSunday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := ((h + l - 7*m + 114) % 31) + 1

	return time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)
}

func formatDate(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}
