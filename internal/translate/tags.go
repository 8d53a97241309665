package translate

import (
	"strings"

	"go.klb.dev/cliplingo/internal/lang"
)

// TagStyle selects how a local model expects language hints.
type TagStyle string

const (
	// TagNLLB produces FLORES-200 codes such as "fra_Latn".
	TagNLLB TagStyle = "nllb"
	// TagMarian produces OPUS-MT prefixes such as ">>fra<<".
	TagMarian TagStyle = "marian"
)

var floresCodes = map[lang.Code]string{
	"af": "afr_Latn", "am": "amh_Ethi", "ar": "arb_Arab", "az": "azj_Latn",
	"be": "bel_Cyrl", "bg": "bul_Cyrl", "bn": "ben_Beng", "ca": "cat_Latn",
	"cs": "ces_Latn", "cy": "cym_Latn", "da": "dan_Latn", "de": "deu_Latn",
	"el": "ell_Grek", "en": "eng_Latn", "eo": "epo_Latn", "es": "spa_Latn",
	"et": "est_Latn", "fa": "pes_Arab", "fi": "fin_Latn", "fr": "fra_Latn",
	"gu": "guj_Gujr", "he": "heb_Hebr", "hi": "hin_Deva", "hr": "hrv_Latn",
	"hu": "hun_Latn", "hy": "hye_Armn", "id": "ind_Latn", "it": "ita_Latn",
	"ja": "jpn_Jpan", "jv": "jav_Latn", "ka": "kat_Geor", "km": "khm_Khmr",
	"kn": "kan_Knda", "ko": "kor_Hang", "la": "lat_Latn", "lt": "lit_Latn",
	"lv": "lvs_Latn", "mk": "mkd_Cyrl", "ml": "mal_Mlym", "mr": "mar_Deva",
	"my": "mya_Mymr", "ne": "npi_Deva", "nl": "nld_Latn", "no": "nob_Latn",
	"or": "ory_Orya", "pa": "pan_Guru", "pl": "pol_Latn", "pt": "por_Latn",
	"ro": "ron_Latn", "ru": "rus_Cyrl", "si": "sin_Sinh", "sk": "slk_Latn",
	"sl": "slv_Latn", "sn": "sna_Latn", "sr": "srp_Cyrl", "sv": "swe_Latn",
	"ta": "tam_Taml", "te": "tel_Telu", "th": "tha_Thai", "tk": "tuk_Latn",
	"tl": "tgl_Latn", "tr": "tur_Latn", "uk": "ukr_Cyrl", "ur": "urd_Arab",
	"uz": "uzn_Latn", "vi": "vie_Latn", "yi": "ydd_Hebr", "zh": "zho_Hans",
	"zu": "zul_Latn",
}

// ParseTagStyle returns the style named by s, defaulting to TagNLLB.
func ParseTagStyle(s string) (TagStyle, bool) {
	switch TagStyle(strings.ToLower(strings.TrimSpace(s))) {
	case "", TagNLLB:
		return TagNLLB, true
	case TagMarian:
		return TagMarian, true
	}
	return "", false
}

// Tag returns the model tag for code, or "" when the code is Auto or
// unknown to the model family.
func (s TagStyle) Tag(code lang.Code) string {
	if code.IsAuto() {
		return ""
	}
	flores, ok := floresCodes[code]
	if !ok {
		return ""
	}
	switch s {
	case TagMarian:
		iso3, _, _ := strings.Cut(flores, "_")
		return ">>" + iso3 + "<<"
	default:
		return flores
	}
}
