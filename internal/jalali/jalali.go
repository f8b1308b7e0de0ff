// Package jalali converts between the Gregorian and Solar-Hijri (Jalali)
// calendars. The upstream system stores legacy periods as Jalali
// year/month pairs and labels monthly buckets with Afghan month names.
//
// The arithmetic follows the well-known 33-year cycle break table
// (Khayyam calendar reform), the same table the upstream frontend used.
package jalali

import (
	"fmt"
	"time"
)

// Afghan Solar-Hijri month names, as stored by the upstream system.
var monthNames = [12]string{
	"حمل", "ثور", "جوزا", "سرطان", "اسد", "سنبله",
	"میزان", "عقرب", "قوس", "جدی", "دلو", "حوت",
}

// Years at which the length of the 33-year leap cycle changes.
var breaks = [...]int{
	-61, 9, 38, 199, 426, 686, 756, 818, 1111, 1181,
	1210, 1635, 2060, 2097, 2192, 2262, 2324, 2394, 2456, 3178,
}

// anchorDay is the fixed mid-month day used when only a Jalali year and
// month are known. It exists for bucketing and ordering, never for
// exact-day reporting.
const anchorDay = 15

// MonthName returns the Solar-Hijri name of month m (1-12), or a plain
// "Month N" placeholder out of range.
func MonthName(m int) string {
	if m < 1 || m > 12 {
		return fmt.Sprintf("Month %d", m)
	}
	return monthNames[m-1]
}

// ToGregorian converts a Jalali year/month pair to a UTC instant anchored
// at mid-month. It reports ok=false for months outside 1-12 or years
// outside the supported cycle table instead of panicking, so a malformed
// record degrades to a skipped record rather than a failed batch.
func ToGregorian(jy, jm int) (time.Time, bool) {
	if jm < 1 || jm > 12 {
		return time.Time{}, false
	}
	if jy < breaks[0] || jy >= breaks[len(breaks)-1] {
		return time.Time{}, false
	}
	_, gy, march := jalCal(jy)
	jdn := g2d(gy, 3, march) + (jm-1)*31 - div(jm, 7)*(jm-7) + anchorDay - 1
	y, m, d := d2g(jdn)
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC), true
}

// ToJalali converts an instant to its Jalali year and month. ok=false
// means the year falls outside the supported table.
func ToJalali(t time.Time) (year, month int, ok bool) {
	t = t.UTC()
	jdn := g2d(t.Year(), int(t.Month()), t.Day())
	jy := t.Year() - 621
	if jy < breaks[0]+1 || jy >= breaks[len(breaks)-1] {
		return 0, 0, false
	}
	leap, gy, march := jalCal(jy)
	k := jdn - g2d(gy, 3, march)
	if k >= 0 {
		if k <= 185 {
			return jy, 1 + div(k, 31), true
		}
		k -= 186
	} else {
		jy--
		k += 179
		if leap == 1 {
			k++
		}
	}
	return jy, 7 + div(k, 30), true
}

// MonthLabel renders the Solar-Hijri label for a Gregorian "YYYY-MM"
// period key. When conversion fails the period key itself is returned, so
// a chart bucket never disappears over a label.
func MonthLabel(period string) string {
	var y, m int
	if _, err := fmt.Sscanf(period, "%d-%d", &y, &m); err != nil || m < 1 || m > 12 {
		return period
	}
	jy, jm, ok := ToJalali(time.Date(y, time.Month(m), anchorDay, 0, 0, 0, 0, time.UTC))
	if !ok {
		return period
	}
	return fmt.Sprintf("%s %d", MonthName(jm), jy)
}

// jalCal computes, for a Jalali year: whether it is a leap year (leap==1),
// the Gregorian year its first day falls in, and the March day of that
// first day.
func jalCal(jy int) (leap, gy, march int) {
	gy = jy + 621
	leapJ := -14
	jp := breaks[0]
	jump := 0
	for i := 1; i < len(breaks); i++ {
		jm := breaks[i]
		jump = jm - jp
		if jy < jm {
			break
		}
		leapJ += div(jump, 33)*8 + div(mod(jump, 33), 4)
		jp = jm
	}
	n := jy - jp

	leapJ += div(n, 33)*8 + div(mod(n, 33)+3, 4)
	if mod(jump, 33) == 4 && jump-n == 4 {
		leapJ++
	}

	leapG := div(gy, 4) - div((div(gy, 100)+1)*3, 4) - 150
	march = 20 + leapJ - leapG

	if jump-n < 6 {
		n = n - jump + div(jump+4, 33)*33
	}
	leap = mod(mod(n+1, 33)-1, 4)
	if leap == -1 {
		leap = 4
	}
	return leap, gy, march
}

// g2d converts a Gregorian date to its Julian day number.
func g2d(gy, gm, gd int) int {
	d := div(1461*(gy+div(gm-8, 6)+100100), 4) +
		div(153*mod(gm+9, 12)+2, 5) +
		gd - 34840408
	return d - div(3*div(gy+100100+div(gm-8, 6), 100), 4) + 752
}

// d2g converts a Julian day number back to a Gregorian date.
func d2g(jdn int) (gy, gm, gd int) {
	j := 4*jdn + 139361631
	j += div(div(4*jdn+183187720, 146097)*3, 4)*4 - 3908
	i := div(mod(j, 1461), 4)*5 + 308
	gd = div(mod(i, 153), 5) + 1
	gm = mod(div(i, 153), 12) + 1
	gy = div(j, 1461) - 100100 + div(8-gm, 6)
	return gy, gm, gd
}

// div and mod truncate toward zero, matching the reference algorithm.
func div(a, b int) int { return a / b }

func mod(a, b int) int { return a % b }
