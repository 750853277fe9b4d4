package record

// Float64Ptr, Uint32Ptr, StringPtr are small literal-to-pointer helpers
// used pervasively when building or editing optional NodeRecord fields.
func Float64Ptr(v float64) *float64 { return &v }
func Uint32Ptr(v uint32) *uint32    { return &v }
func StringPtr(v string) *string    { return &v }
