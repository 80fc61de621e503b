package phonemeow

import "golang.org/x/exp/slices"

// RegionMetadata describes one dialing region: its international calling
// code, the length of a typical mobile national significant number, and the
// default language tag used when creating conversations with users from
// that region.
type RegionMetadata struct {
	CallingCode    string
	Region         string
	NationalLength int
	Language       string
}

// The table is keyed by region, not by calling code: NANP regions share "1"
// and Russia/Kazakhstan share "7". Length values are the typical mobile
// number length per region, matching libphonenumber example numbers.
var regionMetadata = []RegionMetadata{
	{"1", "US", 10, "en"},
	{"1", "CA", 10, "en"},
	{"7", "RU", 10, "ru"},
	{"7", "KZ", 10, "kk"},
	{"20", "EG", 10, "ar"},
	{"27", "ZA", 9, "en"},
	{"30", "GR", 10, "el"},
	{"31", "NL", 9, "nl"},
	{"32", "BE", 9, "nl"},
	{"33", "FR", 9, "fr"},
	{"34", "ES", 9, "es"},
	{"36", "HU", 9, "hu"},
	{"39", "IT", 10, "it"},
	{"40", "RO", 9, "ro"},
	{"41", "CH", 9, "de"},
	{"43", "AT", 10, "de"},
	{"44", "GB", 10, "en"},
	{"45", "DK", 8, "da"},
	{"46", "SE", 9, "sv"},
	{"47", "NO", 8, "nb"},
	{"48", "PL", 9, "pl"},
	{"49", "DE", 11, "de"},
	{"51", "PE", 9, "es"},
	{"52", "MX", 10, "es"},
	{"53", "CU", 8, "es"},
	{"54", "AR", 10, "es"},
	{"55", "BR", 11, "pt"},
	{"56", "CL", 9, "es"},
	{"57", "CO", 10, "es"},
	{"58", "VE", 10, "es"},
	{"60", "MY", 9, "ms"},
	{"61", "AU", 9, "en"},
	{"62", "ID", 10, "id"},
	{"63", "PH", 10, "en"},
	{"64", "NZ", 9, "en"},
	{"65", "SG", 8, "en"},
	{"66", "TH", 9, "th"},
	{"81", "JP", 10, "ja"},
	{"82", "KR", 10, "ko"},
	{"84", "VN", 9, "vi"},
	{"86", "CN", 11, "zh"},
	{"90", "TR", 10, "tr"},
	{"91", "IN", 10, "hi"},
	{"92", "PK", 10, "ur"},
	{"93", "AF", 9, "fa"},
	{"94", "LK", 9, "si"},
	{"95", "MM", 9, "my"},
	{"98", "IR", 10, "fa"},
	{"212", "MA", 9, "ar"},
	{"213", "DZ", 9, "ar"},
	{"216", "TN", 8, "ar"},
	{"234", "NG", 10, "en"},
	{"254", "KE", 9, "sw"},
	{"255", "TZ", 9, "sw"},
	{"297", "AW", 7, "nl"},
	{"351", "PT", 9, "pt"},
	{"352", "LU", 9, "fr"},
	{"353", "IE", 9, "en"},
	{"354", "IS", 7, "is"},
	{"355", "AL", 9, "sq"},
	{"358", "FI", 9, "fi"},
	{"359", "BG", 9, "bg"},
	{"370", "LT", 8, "lt"},
	{"371", "LV", 8, "lv"},
	{"372", "EE", 8, "et"},
	{"380", "UA", 9, "uk"},
	{"381", "RS", 9, "sr"},
	{"385", "HR", 9, "hr"},
	{"386", "SI", 8, "sl"},
	{"420", "CZ", 9, "cs"},
	{"421", "SK", 9, "sk"},
	{"507", "PA", 8, "es"},
	{"597", "SR", 7, "nl"},
	{"598", "UY", 8, "es"},
	{"852", "HK", 8, "zh"},
	{"886", "TW", 9, "zh"},
	{"961", "LB", 8, "ar"},
	{"962", "JO", 9, "ar"},
	{"963", "SY", 9, "ar"},
	{"964", "IQ", 10, "ar"},
	{"965", "KW", 8, "ar"},
	{"966", "SA", 9, "ar"},
	{"971", "AE", 9, "ar"},
	{"972", "IL", 9, "he"},
	{"973", "BH", 8, "ar"},
	{"974", "QA", 8, "ar"},
	{"975", "BT", 8, "dz"},
	{"977", "NP", 10, "ne"},
	{"994", "AZ", 9, "az"},
	{"995", "GE", 9, "ka"},
	{"998", "UZ", 9, "uz"},
}

// codesByLength maps a national number length to the calling codes of all
// regions with that typical length, deduplicated, in table order.
var codesByLength = func() map[int][]string {
	index := make(map[int][]string)
	for _, region := range regionMetadata {
		if !slices.Contains(index[region.NationalLength], region.CallingCode) {
			index[region.NationalLength] = append(index[region.NationalLength], region.CallingCode)
		}
	}
	return index
}()

// RegionsForCallingCode returns the metadata entries sharing the given
// calling code, in table order.
func RegionsForCallingCode(code string) []RegionMetadata {
	var regions []RegionMetadata
	for _, region := range regionMetadata {
		if region.CallingCode == code {
			regions = append(regions, region)
		}
	}
	return regions
}
