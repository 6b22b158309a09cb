/*
The package sm looks into the short messages carried by Forward-SM and MT-Forward-SM primitives. The SM-RP-UI
parameter of these primitives holds an SMS-DELIVER TPDU. This implementation is solely based on:
  [TL]  3GPP TS 23.040 (Technical realization of SMS)
  [DCS] 3GPP TS 23.038 (Alphabets and language-specific information)

The most relevant chapters in [TL] are 9.2.2.1 (SMS-DELIVER) and 9.2.3 (TPDU parameters).

Abbreviations:
TPDU: Transfer Protocol Data Unit
OA: Originating Address
DCS: Data Coding Scheme
SCTS: Service Centre Time Stamp

Restrictions:
User data headers are not interpreted, the user data is decoded as a whole.

*/
package sm
