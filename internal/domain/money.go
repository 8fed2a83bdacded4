package domain

import "fmt"

// Money is an immutable count of physical cash across the seven yuan
// denominations. All arithmetic re-validates non-negativity; there is no
// silent clamping.
type Money struct {
	OneYuanCount     int `json:"one_yuan_count"`
	TwoYuanCount     int `json:"two_yuan_count"`
	FiveYuanCount    int `json:"five_yuan_count"`
	TenYuanCount     int `json:"ten_yuan_count"`
	TwentyYuanCount  int `json:"twenty_yuan_count"`
	FiftyYuanCount   int `json:"fifty_yuan_count"`
	HundredYuanCount int `json:"hundred_yuan_count"`
}

var ZeroMoney = Money{}

// Single-unit values accepted by InsertMoney, one coin or note at a time.
var (
	OneYuan     = Money{OneYuanCount: 1}
	TwoYuan     = Money{TwoYuanCount: 1}
	FiveYuan    = Money{FiveYuanCount: 1}
	TenYuan     = Money{TenYuanCount: 1}
	TwentyYuan  = Money{TwentyYuanCount: 1}
	FiftyYuan   = Money{FiftyYuanCount: 1}
	HundredYuan = Money{HundredYuanCount: 1}
)

// SingleUnits is the canonical set a single inserted coin/note must match.
var SingleUnits = []Money{OneYuan, TwoYuan, FiveYuan, TenYuan, TwentyYuan, FiftyYuan, HundredYuan}

func NewMoney(one, two, five, ten, twenty, fifty, hundred int) (Money, error) {
	m := Money{
		OneYuanCount:     one,
		TwoYuanCount:     two,
		FiveYuanCount:    five,
		TenYuanCount:     ten,
		TwentyYuanCount:  twenty,
		FiftyYuanCount:   fifty,
		HundredYuanCount: hundred,
	}
	if err := m.validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

func (m Money) validate() error {
	for _, d := range m.denominations() {
		if d.count < 0 {
			return NewError(CodeInvariantViolation, "money", fmt.Sprintf("%d-yuan count is negative", d.value), nil)
		}
	}
	return nil
}

type denomination struct {
	value int64
	count int
}

// denominations returns the counts ordered largest-first, the order the
// greedy allocator walks them in.
func (m Money) denominations() []denomination {
	return []denomination{
		{100, m.HundredYuanCount},
		{50, m.FiftyYuanCount},
		{20, m.TwentyYuanCount},
		{10, m.TenYuanCount},
		{5, m.FiveYuanCount},
		{2, m.TwoYuanCount},
		{1, m.OneYuanCount},
	}
}

func fromDenominations(ds []denomination) Money {
	var m Money
	for _, d := range ds {
		switch d.value {
		case 100:
			m.HundredYuanCount = d.count
		case 50:
			m.FiftyYuanCount = d.count
		case 20:
			m.TwentyYuanCount = d.count
		case 10:
			m.TenYuanCount = d.count
		case 5:
			m.FiveYuanCount = d.count
		case 2:
			m.TwoYuanCount = d.count
		case 1:
			m.OneYuanCount = d.count
		}
	}
	return m
}

// Amount is the weighted sum of all denomination counts, in whole yuan.
func (m Money) Amount() int64 {
	var total int64
	for _, d := range m.denominations() {
		total += d.value * int64(d.count)
	}
	return total
}

func (m Money) IsZero() bool {
	return m == ZeroMoney
}

// IsSingleUnit reports whether m is exactly one coin or note from the
// canonical denomination set.
func (m Money) IsSingleUnit() bool {
	for _, u := range SingleUnits {
		if m == u {
			return true
		}
	}
	return false
}

func (m Money) Add(o Money) (Money, error) {
	sum := Money{
		OneYuanCount:     m.OneYuanCount + o.OneYuanCount,
		TwoYuanCount:     m.TwoYuanCount + o.TwoYuanCount,
		FiveYuanCount:    m.FiveYuanCount + o.FiveYuanCount,
		TenYuanCount:     m.TenYuanCount + o.TenYuanCount,
		TwentyYuanCount:  m.TwentyYuanCount + o.TwentyYuanCount,
		FiftyYuanCount:   m.FiftyYuanCount + o.FiftyYuanCount,
		HundredYuanCount: m.HundredYuanCount + o.HundredYuanCount,
	}
	if err := sum.validate(); err != nil {
		return Money{}, err
	}
	return sum, nil
}

func (m Money) Sub(o Money) (Money, error) {
	diff := Money{
		OneYuanCount:     m.OneYuanCount - o.OneYuanCount,
		TwoYuanCount:     m.TwoYuanCount - o.TwoYuanCount,
		FiveYuanCount:    m.FiveYuanCount - o.FiveYuanCount,
		TenYuanCount:     m.TenYuanCount - o.TenYuanCount,
		TwentyYuanCount:  m.TwentyYuanCount - o.TwentyYuanCount,
		FiftyYuanCount:   m.FiftyYuanCount - o.FiftyYuanCount,
		HundredYuanCount: m.HundredYuanCount - o.HundredYuanCount,
	}
	if err := diff.validate(); err != nil {
		return Money{}, err
	}
	return diff, nil
}

func (m Money) Mul(n int) (Money, error) {
	prod := Money{
		OneYuanCount:     m.OneYuanCount * n,
		TwoYuanCount:     m.TwoYuanCount * n,
		FiveYuanCount:    m.FiveYuanCount * n,
		TenYuanCount:     m.TenYuanCount * n,
		TwentyYuanCount:  m.TwentyYuanCount * n,
		FiftyYuanCount:   m.FiftyYuanCount * n,
		HundredYuanCount: m.HundredYuanCount * n,
	}
	if err := prod.validate(); err != nil {
		return Money{}, err
	}
	return prod, nil
}

// CanAllocate tries to pick change for amount with a greedy descent from the
// largest denomination downward. It succeeds only when the greedy pick sums
// to the amount exactly. The greedy strategy can reject combinations a
// smarter allocator would satisfy; callers depend on that exact failure
// behavior, so it must not be replaced with an optimal search.
func (m Money) CanAllocate(amount int64) (Money, bool) {
	if amount < 0 {
		return Money{}, false
	}
	remaining := amount
	picked := make([]denomination, 0, 7)
	for _, d := range m.denominations() {
		take := remaining / d.value
		if take > int64(d.count) {
			take = int64(d.count)
		}
		picked = append(picked, denomination{value: d.value, count: int(take)})
		remaining -= take * d.value
	}
	change := fromDenominations(picked)
	if change.Amount() != amount {
		return Money{}, false
	}
	return change, true
}
